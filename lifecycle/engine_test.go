package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"annadan-api/apperr"
	"annadan-api/config"
	"annadan-api/models"
	"annadan-api/storage"
	"annadan-api/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *store.Store
	engine *Engine
	donor  *models.User
	r1     *models.User
	r2     *models.User
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := config.OpenDB("sqlite", filepath.Join(t.TempDir(), "lifecycle.db"))
	require.NoError(t, err)
	s := store.New(db)

	f := &fixture{store: s}
	f.donor = f.user(t, "donor@test.com")
	f.r1 = f.user(t, "r1@test.com")
	f.r2 = f.user(t, "r2@test.com")

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.engine = NewEngine(s, storage.Disabled{}, discardLogger(), opts...)
	return f
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: "x", IsVerified: true}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func validDonation() DonationInput {
	return DonationInput{
		Title:          "Vegetable biryani",
		FoodType:       models.FoodCooked,
		Quantity:       "20 plates",
		ExpiryDate:     fixedNow.Add(24 * time.Hour),
		PickupLocation: "Indiranagar, Bengaluru",
		Contact:        models.DonorContact{Name: "Asha", Phone: "98450", Email: "asha@test.com"},
	}
}

func (f *fixture) donation(t *testing.T) *models.Donation {
	t.Helper()
	d, err := f.engine.CreateDonation(context.Background(), f.donor.ID, validDonation())
	require.NoError(t, err)
	return d
}

func (f *fixture) request(t *testing.T, donationID string, requester *models.User) *models.PickupRequest {
	t.Helper()
	p, err := f.engine.CreatePickupRequest(context.Background(), requester.ID, PickupInput{DonationID: donationID})
	require.NoError(t, err)
	return p
}

func (f *fixture) donationStatus(t *testing.T, id string) models.DonationStatus {
	t.Helper()
	d, err := f.store.GetDonation(context.Background(), id)
	require.NoError(t, err)
	return d.Status
}

func (f *fixture) requestStatus(t *testing.T, id string) models.RequestStatus {
	t.Helper()
	p, err := f.store.GetPickupRequest(context.Background(), id)
	require.NoError(t, err)
	return p.Status
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), err.Error())
}

func countRows(t *testing.T, s *store.Store, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(model).Count(&n).Error)
	return n
}

func TestCreateDonation(t *testing.T) {
	f := newFixture(t)
	d := f.donation(t)

	assert.Equal(t, models.DonationAvailable, d.Status)
	assert.Equal(t, f.donor.ID, d.DonorID)
	assert.Equal(t, "Asha", d.DonorContact.Name)
	require.NotNil(t, d.Donor, "created donation embeds the donor")
	assert.Equal(t, f.donor.Email, d.Donor.Email)
	assert.Nil(t, d.ImageURL)
	assert.EqualValues(t, 1, countRows(t, f.store, &models.Donation{}))
}

func TestCreateDonationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := validDonation()
	missing.PickupLocation = "  "
	_, err := f.engine.CreateDonation(ctx, f.donor.ID, missing)
	assertKind(t, err, apperr.KindValidation)

	badType := validDonation()
	badType.FoodType = "pizza"
	_, err = f.engine.CreateDonation(ctx, f.donor.ID, badType)
	assertKind(t, err, apperr.KindValidation)

	// Scenario E
	yesterday := validDonation()
	yesterday.ExpiryDate = fixedNow.Add(-24 * time.Hour)
	_, err = f.engine.CreateDonation(ctx, f.donor.ID, yesterday)
	assertKind(t, err, apperr.KindValidation)

	exactlyNow := validDonation()
	exactlyNow.ExpiryDate = fixedNow
	_, err = f.engine.CreateDonation(ctx, f.donor.ID, exactlyNow)
	assertKind(t, err, apperr.KindValidation)

	assert.EqualValues(t, 0, countRows(t, f.store, &models.Donation{}))
}

type fakeUploader struct {
	url string
	err error
}

func (u fakeUploader) UploadImage(context.Context, io.Reader, string, storage.ImageKind) (string, error) {
	return u.url, u.err
}

func TestCreateDonationImageUploadIsBestEffort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validDonation()
	in.Image = &Image{Filename: "biryani.jpg", Reader: strings.NewReader("jpeg")}

	f.engine.images = fakeUploader{err: errors.New("cloudinary down")}
	d, err := f.engine.CreateDonation(ctx, f.donor.ID, in)
	require.NoError(t, err)
	assert.Nil(t, d.ImageURL)

	in.Image = &Image{Filename: "biryani.jpg", Reader: strings.NewReader("jpeg")}
	f.engine.images = fakeUploader{url: "https://cdn.test/biryani.jpg"}
	d, err = f.engine.CreateDonation(ctx, f.donor.ID, in)
	require.NoError(t, err)
	require.NotNil(t, d.ImageURL)
	assert.Equal(t, "https://cdn.test/biryani.jpg", *d.ImageURL)
}

func TestCreatePickupRequestPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)

	// Scenario C
	_, err := f.engine.CreatePickupRequest(ctx, f.r1.ID, PickupInput{DonationID: "does-not-exist"})
	assertKind(t, err, apperr.KindNotFound)
	assert.EqualValues(t, 0, countRows(t, f.store, &models.PickupRequest{}))

	_, err = f.engine.CreatePickupRequest(ctx, f.r1.ID, PickupInput{})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.engine.CreatePickupRequest(ctx, f.donor.ID, PickupInput{DonationID: d.ID})
	assertKind(t, err, apperr.KindInvalidOperation)

	// Scenario D
	p := f.request(t, d.ID, f.r1)
	assert.Equal(t, models.RequestPending, p.Status)
	_, err = f.engine.CreatePickupRequest(ctx, f.r1.ID, PickupInput{DonationID: d.ID})
	assertKind(t, err, apperr.KindConflict)
	assert.EqualValues(t, 1, countRows(t, f.store, &models.PickupRequest{}))

	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, d.ID), "pending request leaves donation available")
}

func TestCreatePickupRequestOnUnavailableDonation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p := f.request(t, d.ID, f.r1)

	_, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, models.RequestApproved)
	require.NoError(t, err)

	_, err = f.engine.CreatePickupRequest(ctx, f.r2.ID, PickupInput{DonationID: d.ID})
	assertKind(t, err, apperr.KindInvalidState)

	// reserved donation: the invalid-state check comes before the own-donation check
	_, err = f.engine.CreatePickupRequest(ctx, f.donor.ID, PickupInput{DonationID: d.ID})
	assertKind(t, err, apperr.KindInvalidState)
}

func TestScenarioA_SecondApprovalIsPermittedByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)

	p1 := f.request(t, d.ID, f.r1)
	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, d.ID))
	p2 := f.request(t, d.ID, f.r2)
	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, d.ID))

	got, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p1.ID, models.RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, got.Status)
	assert.Equal(t, models.DonationReserved, f.donationStatus(t, d.ID))

	got, err = f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p2.ID, models.RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, got.Status)
	assert.Equal(t, models.DonationReserved, f.donationStatus(t, d.ID))

	// rejecting one of two approvals keeps the reservation held by the other
	_, err = f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p1.ID, models.RequestRejected)
	require.NoError(t, err)
	assert.Equal(t, models.DonationReserved, f.donationStatus(t, d.ID))

	_, err = f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p2.ID, models.RequestRejected)
	require.NoError(t, err)
	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, d.ID))
}

func TestScenarioA_ExclusiveApprovalBlocksSecondApproval(t *testing.T) {
	f := newFixture(t, WithExclusiveApproval(true))
	ctx := context.Background()
	d := f.donation(t)
	p1 := f.request(t, d.ID, f.r1)
	p2 := f.request(t, d.ID, f.r2)

	_, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p1.ID, models.RequestApproved)
	require.NoError(t, err)

	_, err = f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p2.ID, models.RequestApproved)
	assertKind(t, err, apperr.KindInvalidState)
	assert.Equal(t, models.RequestPending, f.requestStatus(t, p2.ID))

	// the second requester can still be turned down
	_, err = f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p2.ID, models.RequestRejected)
	require.NoError(t, err)
	assert.Equal(t, models.DonationReserved, f.donationStatus(t, d.ID))
}

func TestScenarioB_RejectApprovedReleasesDonation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p1 := f.request(t, d.ID, f.r1)

	_, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p1.ID, models.RequestApproved)
	require.NoError(t, err)
	require.Equal(t, models.DonationReserved, f.donationStatus(t, d.ID))

	got, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p1.ID, models.RequestRejected)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, got.Status)
	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, d.ID))

	changes, err := f.store.ListStatusChanges(ctx, models.EntityDonation, d.ID)
	require.NoError(t, err)
	var path []string
	for _, c := range changes {
		path = append(path, c.ToStatus)
	}
	assert.Equal(t, []string{"available", "reserved", "available"}, path)
}

func TestRejectPendingLeavesDonationAvailable(t *testing.T) {
	f := newFixture(t)
	d := f.donation(t)
	p := f.request(t, d.ID, f.r1)

	_, err := f.engine.UpdatePickupRequestStatus(context.Background(), f.donor.ID, p.ID, models.RequestRejected)
	require.NoError(t, err)
	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, d.ID))
}

func TestCompleteMovesDonationToPickedUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p := f.request(t, d.ID, f.r1)

	_, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, models.RequestCompleted)
	assertKind(t, err, apperr.KindInvalidState)

	_, err = f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, models.RequestApproved)
	require.NoError(t, err)
	got, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, models.RequestCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCompleted, got.Status)
	assert.Equal(t, models.DonationPickedUp, f.donationStatus(t, d.ID))

	// terminal: nothing moves out of completed
	for _, target := range []models.RequestStatus{models.RequestApproved, models.RequestRejected, models.RequestCompleted} {
		_, err = f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, target)
		assertKind(t, err, apperr.KindInvalidState)
	}
	assert.Equal(t, models.DonationPickedUp, f.donationStatus(t, d.ID))
}

func TestUpdatePickupRequestStatusChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p := f.request(t, d.ID, f.r1)

	for _, bad := range []models.RequestStatus{"pending", "confirmed", "declined", ""} {
		_, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, bad)
		assertKind(t, err, apperr.KindValidation)
	}

	_, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, "missing", models.RequestApproved)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.engine.UpdatePickupRequestStatus(ctx, f.r1.ID, p.ID, models.RequestApproved)
	assertKind(t, err, apperr.KindForbidden)
	assert.Equal(t, models.RequestPending, f.requestStatus(t, p.ID))
}

// failingDonationWrites makes every donation status write fail, including
// inside transactions.
type failingDonationWrites struct {
	store.Repository
}

func (f failingDonationWrites) UpdateDonationStatus(context.Context, string, models.DonationStatus, models.DonationStatus) (bool, error) {
	return false, errors.New("donations table locked")
}

func (f failingDonationWrites) Transaction(ctx context.Context, fn func(tx store.Repository) error) error {
	return f.Repository.Transaction(ctx, func(tx store.Repository) error {
		return fn(failingDonationWrites{tx})
	})
}

func TestDependentWriteFailureDoesNotFailRequestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p := f.request(t, d.ID, f.r1)

	engine := NewEngine(failingDonationWrites{f.store}, storage.Disabled{}, discardLogger(), WithClock(func() time.Time { return fixedNow }))
	got, err := engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, models.RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, got.Status)
	assert.Equal(t, models.RequestApproved, f.requestStatus(t, p.ID))
	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, d.ID), "documented inconsistency window")

	// the sweep closes the window
	fixed, err := NewReconciler(f.store, discardLogger(), nil, time.Minute).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
	assert.Equal(t, models.DonationReserved, f.donationStatus(t, d.ID))
}

func TestCancelPickupRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p := f.request(t, d.ID, f.r1)

	assertKind(t, f.engine.CancelPickupRequest(ctx, f.r2.ID, p.ID), apperr.KindForbidden)
	assertKind(t, f.engine.CancelPickupRequest(ctx, f.donor.ID, p.ID), apperr.KindForbidden)
	assertKind(t, f.engine.CancelPickupRequest(ctx, f.r1.ID, "missing"), apperr.KindNotFound)

	require.NoError(t, f.engine.CancelPickupRequest(ctx, f.r1.ID, p.ID))
	assert.EqualValues(t, 0, countRows(t, f.store, &models.PickupRequest{}))
	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, d.ID))

	// cancelling frees the slot for a new pending request
	f.request(t, d.ID, f.r1)
}

func TestCancelNonPendingRequestFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p := f.request(t, d.ID, f.r1)
	_, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, models.RequestApproved)
	require.NoError(t, err)

	err = f.engine.CancelPickupRequest(ctx, f.r1.ID, p.ID)
	assertKind(t, err, apperr.KindInvalidState)
	assert.Equal(t, "Only pending requests can be cancelled", apperr.Message(err))
	assert.Equal(t, models.RequestApproved, f.requestStatus(t, p.ID))
	assert.Equal(t, models.DonationReserved, f.donationStatus(t, d.ID))
}

func TestGetPickupRequestAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p := f.request(t, d.ID, f.r1)

	_, err := f.engine.GetPickupRequest(ctx, f.r1.ID, p.ID)
	assert.NoError(t, err)
	_, err = f.engine.GetPickupRequest(ctx, f.donor.ID, p.ID)
	assert.NoError(t, err)
	_, err = f.engine.GetPickupRequest(ctx, f.r2.ID, p.ID)
	assertKind(t, err, apperr.KindForbidden)
}

func TestListDonations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.donation(t)
	second := f.donation(t)
	p := f.request(t, first.ID, f.r1)
	_, err := f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, models.RequestApproved)
	require.NoError(t, err)

	donations, page, err := f.engine.ListDonations(ctx, DonationQuery{})
	require.NoError(t, err)
	require.Len(t, donations, 1)
	assert.Equal(t, second.ID, donations[0].ID)
	assert.Equal(t, Pagination{Limit: 20, Offset: 0, HasMore: false}, page)

	donations, page, err = f.engine.ListDonations(ctx, DonationQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, donations, 1)
	assert.True(t, page.HasMore)

	// the clock moving past the expiry hides the donation without changing its status
	f.engine.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	donations, _, err = f.engine.ListDonations(ctx, DonationQuery{})
	require.NoError(t, err)
	assert.Empty(t, donations)
	assert.Equal(t, models.DonationAvailable, f.donationStatus(t, second.ID))

	own, page, err := f.engine.ListOwnDonations(ctx, f.donor.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	assert.False(t, page.HasMore)
}

func TestListPickupRequestsForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)
	p1 := f.request(t, d.ID, f.r1)
	f.request(t, d.ID, f.r2)

	sent, _, err := f.engine.ListPickupRequestsForUser(ctx, f.r1.ID, RequestQuery{})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, p1.ID, sent[0].ID)
	require.NotNil(t, sent[0].Donation)
	assert.Equal(t, f.donor.ID, sent[0].Donation.Donor.ID)

	received, page, err := f.engine.ListPickupRequestsForUser(ctx, f.donor.ID, RequestQuery{Direction: store.DirectionReceived})
	require.NoError(t, err)
	assert.Len(t, received, 2)
	assert.Equal(t, 10, page.Limit)

	_, _, err = f.engine.ListPickupRequestsForUser(ctx, f.donor.ID, RequestQuery{Direction: "both"})
	assertKind(t, err, apperr.KindValidation)
	_, _, err = f.engine.ListPickupRequestsForUser(ctx, f.donor.ID, RequestQuery{Status: "cancelled"})
	assertKind(t, err, apperr.KindValidation)
}

func TestAtMostOnePendingPerPairAcrossLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.donation(t)

	for i := 0; i < 3; i++ {
		p := f.request(t, d.ID, f.r1)
		_, err := f.engine.CreatePickupRequest(ctx, f.r1.ID, PickupInput{DonationID: d.ID})
		assertKind(t, err, apperr.KindConflict)
		_, err = f.engine.UpdatePickupRequestStatus(ctx, f.donor.ID, p.ID, models.RequestRejected)
		require.NoError(t, err)
	}

	pending, err := f.store.CountRequests(ctx, d.ID, models.RequestPending, "")
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending)
	rejected, err := f.store.CountRequests(ctx, d.ID, models.RequestRejected, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, rejected)

	var statuses []string
	require.NoError(t, f.store.DB().Model(&models.Donation{}).Distinct().Pluck("status", &statuses).Error)
	for _, s := range statuses {
		assert.True(t, models.DonationStatus(s).Valid(), s)
	}
}
