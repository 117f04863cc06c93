package market

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/liquex-dev/liquex/pkg/geo"
	"github.com/liquex-dev/liquex/pkg/kv"
	"github.com/liquex-dev/liquex/pkg/schema"
)

var (
	requester = schema.Actor{ID: "u-1", DisplayName: "ria"}
	helper    = schema.Actor{ID: "u-2", DisplayName: "hal"}

	nyc       = geo.Point{Lat: 40.7128, Lon: -74.0060}
	nearbyPos = geo.Point{Lat: 40.7130, Lon: -74.0061} // ~25m from nyc
)

type fixture struct {
	svc   *Service
	now   time.Time
	codes []string
}

// newFixture builds a Service on an in-memory store with a controllable
// clock and a deterministic passcode sequence.
func newFixture(codes ...string) *fixture {
	if len(codes) == 0 {
		codes = []string{"4821"}
	}
	f := &fixture{
		now:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		codes: codes,
	}
	f.svc = New(kv.NewMemStore(nil, nil),
		WithClock(func() time.Time { return f.now }),
		WithPasscodeSource(func() string {
			code := f.codes[0]
			if len(f.codes) > 1 {
				f.codes = f.codes[1:]
			}
			return code
		}),
	)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) create(t *testing.T, owner schema.Actor, loc geo.Point) schema.Request {
	t.Helper()
	req, err := f.svc.Create(CreateInput{
		Owner:       owner,
		Category:    schema.CategoryFoodDelivery,
		Description: "need groceries",
		Location:    &loc,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return req
}

func TestCreate_Pending(t *testing.T) {
	f := newFixture()

	req := f.create(t, requester, nyc)
	if req.Status != schema.StatusPending {
		t.Errorf("Expected pending, got %s", req.Status)
	}
	if req.Kind != "Food Delivery" {
		t.Errorf("Expected kind Food Delivery, got %q", req.Kind)
	}
	if req.ID == "" || req.OwnerID != requester.ID {
		t.Errorf("Bad identity fields: %+v", req)
	}
	if loc, ok := req.Location(); !ok || loc != nyc {
		t.Errorf("Location not recorded: %+v", req)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	loc := nyc

	cases := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"missing description", CreateInput{Owner: requester, Category: schema.CategoryGrocery, Location: &loc}, ErrValidation},
		{"blank description", CreateInput{Owner: requester, Category: schema.CategoryGrocery, Description: "   ", Location: &loc}, ErrValidation},
		{"other without custom kind", CreateInput{Owner: requester, Category: schema.CategoryOther, Description: "help", Location: &loc}, ErrValidation},
		{"unknown category", CreateInput{Owner: requester, Category: "banana", Description: "help", Location: &loc}, ErrValidation},
		{"missing owner", CreateInput{Category: schema.CategoryGrocery, Description: "help", Location: &loc}, ErrValidation},
		{"missing location", CreateInput{Owner: requester, Category: schema.CategoryGrocery, Description: "help"}, ErrLocationUnavailable},
	}

	for _, tc := range cases {
		if _, err := f.svc.Create(tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	// Nothing was persisted by the failed attempts.
	reqs, _ := f.svc.Mine(requester)
	if len(reqs) != 0 {
		t.Errorf("Failed creates must not persist, got %d requests", len(reqs))
	}
}

func TestCreate_CustomKind(t *testing.T) {
	f := newFixture()
	loc := nyc

	req, err := f.svc.Create(CreateInput{
		Owner:       requester,
		Category:    schema.CategoryOther,
		CustomKind:  "Dog Walking",
		Description: "walk my dog",
		Location:    &loc,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if req.Kind != "Dog Walking" {
		t.Errorf("Expected custom kind, got %q", req.Kind)
	}
}

func TestCreate_UniqueIDsWithFrozenClock(t *testing.T) {
	f := newFixture()

	a := f.create(t, requester, nyc)
	b := f.create(t, requester, nyc)
	if a.ID == b.ID {
		t.Errorf("IDs must stay unique even within one millisecond: %s", a.ID)
	}
}

func TestAccept_SetsHelper(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)

	got, err := f.svc.Accept(req.ID, helper)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if got.Status != schema.StatusAccepted || got.AcceptedBy != helper.ID || got.AcceptedByName != helper.DisplayName {
		t.Errorf("Accept did not record helper: %+v", got)
	}
}

func TestAcceptReject_OnlyFromPending(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)

	if _, err := f.svc.Accept(req.ID, helper); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if _, err := f.svc.Accept(req.ID, helper); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Second accept: expected ErrInvalidState, got %v", err)
	}
	if _, err := f.svc.Reject(req.ID, helper); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Reject after accept: expected ErrInvalidState, got %v", err)
	}

	// Status unchanged by the failed attempts.
	got, _ := f.svc.Get(req.ID)
	if got.Status != schema.StatusAccepted {
		t.Errorf("Status changed by failed transition: %s", got.Status)
	}
}

func TestReject_Terminal(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)

	got, err := f.svc.Reject(req.ID, helper)
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if got.Status != schema.StatusRejected || got.RejectedBy != helper.ID {
		t.Errorf("Reject did not record rejector: %+v", got)
	}
	if _, err := f.svc.Accept(req.ID, helper); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Accept after reject: expected ErrInvalidState, got %v", err)
	}
}

func TestAccept_UnknownID(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Accept("nope", helper); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNearby_ExcludesOwnAndFar(t *testing.T) {
	f := newFixture()

	f.create(t, requester, nyc) // own, excluded
	f.advance(time.Millisecond)
	f.create(t, helper, geo.Point{Lat: 40.8, Lon: -74.0060}) // ~9.7km away
	f.advance(time.Millisecond)
	near := f.create(t, helper, nearbyPos)

	got, err := f.svc.Nearby(requester, nyc, geo.DefaultRadius)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != near.ID {
		t.Fatalf("Expected only the near request, got %+v", got)
	}
}

func TestNearby_KeepsNonPendingVisible(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)
	if _, err := f.svc.Accept(req.ID, helper); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	got, err := f.svc.Nearby(helper, nearbyPos, geo.DefaultRadius)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(got) != 1 || got[0].Status != schema.StatusAccepted {
		t.Errorf("Accepted request should stay visible nearby: %+v", got)
	}
}

func TestMine_AllStatuses(t *testing.T) {
	f := newFixture()
	a := f.create(t, requester, nyc)
	f.advance(time.Millisecond)
	f.create(t, requester, nyc)
	if _, err := f.svc.Reject(a.ID, helper); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	mine, err := f.svc.Mine(requester)
	if err != nil {
		t.Fatalf("Mine failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("Expected 2 own requests, got %d", len(mine))
	}
	if mine[0].Status != schema.StatusRejected || mine[1].Status != schema.StatusPending {
		t.Errorf("Mine must include every status: %+v", mine)
	}
}

func TestChat_ClosedBeforeAcceptance(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)

	if _, err := f.svc.PostMessage(req.ID, requester, "hello?"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Expected ErrInvalidState on pending chat, got %v", err)
	}
}

func TestChat_AppendAndOrder(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)
	if _, err := f.svc.Accept(req.ID, helper); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	// Frozen clock: ordering must still be strictly increasing.
	if _, err := f.svc.PostMessage(req.ID, helper, "on my way"); err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}
	if _, err := f.svc.PostMessage(req.ID, requester, "thanks"); err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}

	msgs, err := f.svc.Messages(req.ID)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if !msgs[0].CreatedAt.Before(msgs[1].CreatedAt) {
		t.Errorf("Timestamps not strictly increasing: %v vs %v", msgs[0].CreatedAt, msgs[1].CreatedAt)
	}
	if msgs[0].ID == msgs[1].ID {
		t.Errorf("Message IDs must be unique")
	}
}

func TestShareLocation_DoesNotMoveRequest(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)
	if _, err := f.svc.Accept(req.ID, helper); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	msg, err := f.svc.ShareLocation(req.ID, helper, nearbyPos)
	if err != nil {
		t.Fatalf("ShareLocation failed: %v", err)
	}
	if msg.Kind != schema.MessageLocation {
		t.Errorf("Expected location message, got %s", msg.Kind)
	}

	got, _ := f.svc.Get(req.ID)
	if loc, ok := got.Location(); !ok || loc != nyc {
		t.Errorf("Request's own location must not change: %+v", got)
	}
}

func TestIssuePasscode_OwnerOnlyWhileAccepted(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)

	if _, err := f.svc.IssuePasscode(req.ID, requester); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Issue on pending: expected ErrInvalidState, got %v", err)
	}

	if _, err := f.svc.Accept(req.ID, helper); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if _, err := f.svc.IssuePasscode(req.ID, helper); !errors.Is(err, ErrPermission) {
		t.Errorf("Issue by helper: expected ErrPermission, got %v", err)
	}

	code, err := f.svc.IssuePasscode(req.ID, requester)
	if err != nil {
		t.Fatalf("IssuePasscode failed: %v", err)
	}
	if code.Code != "4821" {
		t.Errorf("Expected injected code, got %s", code.Code)
	}
	if code.ExpiresAt.Sub(code.IssuedAt) != PasscodeTTL {
		t.Errorf("Expected 5 minute validity, got %s", code.ExpiresAt.Sub(code.IssuedAt))
	}

	// The code is announced in-channel as a system notice.
	msgs, _ := f.svc.Messages(req.ID)
	last := msgs[len(msgs)-1]
	if last.SenderID != schema.SystemSender || last.Kind != schema.MessageSystem {
		t.Errorf("Expected system notice, got %+v", last)
	}
}

func TestVerifyPasscode_EndToEnd(t *testing.T) {
	f := newFixture()

	req := f.create(t, requester, nyc)
	if _, err := f.svc.Accept(req.ID, helper); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := f.svc.IssuePasscode(req.ID, requester); err != nil {
		t.Fatalf("IssuePasscode failed: %v", err)
	}

	f.advance(2 * time.Minute)

	got, err := f.svc.VerifyPasscode(req.ID, helper, "4821")
	if err != nil {
		t.Fatalf("VerifyPasscode failed: %v", err)
	}
	if got.Status != schema.StatusCompleted || got.CompletedAt == nil {
		t.Errorf("Expected completed request, got %+v", got)
	}

	msgs, _ := f.svc.Messages(req.ID)
	last := msgs[len(msgs)-1]
	if last.Kind != schema.MessageSystem || last.Body != "Payment completed (simulated)" {
		t.Errorf("Expected completion notice, got %+v", last)
	}

	// Single use: the consumed code is gone.
	if _, err := f.svc.VerifyPasscode(req.ID, helper, "4821"); !errors.Is(err, ErrNoActiveCode) {
		t.Errorf("Expected ErrNoActiveCode on reuse, got %v", err)
	}
}

func TestVerifyPasscode_Mismatch(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)
	f.svc.Accept(req.ID, helper)
	f.svc.IssuePasscode(req.ID, requester)

	if _, err := f.svc.VerifyPasscode(req.ID, helper, "0000"); !errors.Is(err, ErrCodeMismatch) {
		t.Errorf("Expected ErrCodeMismatch, got %v", err)
	}

	got, _ := f.svc.Get(req.ID)
	if got.Status != schema.StatusAccepted {
		t.Errorf("Mismatch must not complete the request: %s", got.Status)
	}

	// Still completable with the correct code afterward.
	if _, err := f.svc.VerifyPasscode(req.ID, helper, "4821"); err != nil {
		t.Errorf("Correct code after mismatch should complete: %v", err)
	}
}

func TestVerifyPasscode_Expired(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)
	f.svc.Accept(req.ID, helper)
	f.svc.IssuePasscode(req.ID, requester)

	f.advance(PasscodeTTL) // now == expiresAt counts as expired

	if _, err := f.svc.VerifyPasscode(req.ID, helper, "4821"); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("Expected ErrCodeExpired, got %v", err)
	}
	got, _ := f.svc.Get(req.ID)
	if got.Status != schema.StatusAccepted {
		t.Errorf("Expired code must not complete the request: %s", got.Status)
	}
}

func TestIssuePasscode_SupersedesPrior(t *testing.T) {
	f := newFixture("1111", "2222")
	req := f.create(t, requester, nyc)
	f.svc.Accept(req.ID, helper)

	if _, err := f.svc.IssuePasscode(req.ID, requester); err != nil {
		t.Fatalf("First issue failed: %v", err)
	}
	if _, err := f.svc.IssuePasscode(req.ID, requester); err != nil {
		t.Fatalf("Second issue failed: %v", err)
	}

	if _, err := f.svc.VerifyPasscode(req.ID, helper, "1111"); !errors.Is(err, ErrCodeMismatch) {
		t.Errorf("Old code after reissue: expected ErrCodeMismatch, got %v", err)
	}
	if _, err := f.svc.VerifyPasscode(req.ID, helper, "2222"); err != nil {
		t.Errorf("Fresh code should verify: %v", err)
	}
}

// brokenDeleteStore fails DeleteCollection on demand, standing in for a
// backend that dies mid-operation.
type brokenDeleteStore struct {
	*kv.MemStore
	broken bool
}

func (b *brokenDeleteStore) DeleteCollection(name string) error {
	if b.broken {
		return fmt.Errorf("disk full")
	}
	return b.MemStore.DeleteCollection(name)
}

func TestVerifyPasscode_CompletionSurvivesConsumeFailure(t *testing.T) {
	store := &brokenDeleteStore{MemStore: kv.NewMemStore(nil, nil)}
	svc := New(store, WithPasscodeSource(func() string { return "4821" }))

	loc := nyc
	req, err := svc.Create(CreateInput{
		Owner:       requester,
		Category:    schema.CategoryGrocery,
		Description: "need milk",
		Location:    &loc,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Accept(req.ID, helper); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := svc.IssuePasscode(req.ID, requester); err != nil {
		t.Fatalf("IssuePasscode failed: %v", err)
	}

	store.broken = true
	if _, err := svc.VerifyPasscode(req.ID, helper, "4821"); err == nil {
		t.Fatal("Expected the store failure to surface")
	}

	// The status write lands before the consume; the error does not roll
	// the completion back.
	got, err := svc.Get(req.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != schema.StatusCompleted {
		t.Errorf("Expected completed despite consume failure, got %s", got.Status)
	}
}

func TestVerifyPasscode_NoneIssued(t *testing.T) {
	f := newFixture()
	req := f.create(t, requester, nyc)
	f.svc.Accept(req.ID, helper)

	if _, err := f.svc.VerifyPasscode(req.ID, helper, "4821"); !errors.Is(err, ErrNoActiveCode) {
		t.Errorf("Expected ErrNoActiveCode, got %v", err)
	}
}

func TestLogin_FindOrCreate(t *testing.T) {
	f := newFixture()

	first, err := f.svc.Login("ria", "555-0100")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	again, err := f.svc.Login("ria", "555-0100")
	if err != nil {
		t.Fatalf("Second login failed: %v", err)
	}
	if first.ID != again.ID {
		t.Errorf("Login must reuse the existing user: %s vs %s", first.ID, again.ID)
	}

	f.advance(time.Millisecond)
	other, err := f.svc.Login("ria", "555-0199")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if other.ID == first.ID {
		t.Errorf("Different phone must create a new user")
	}
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture()

	// Requester R creates "Food Delivery" at NYC coordinates.
	req, err := f.svc.Create(CreateInput{
		Owner:       requester,
		Category:    schema.CategoryFoodDelivery,
		Description: "need groceries",
		Location:    &geo.Point{Lat: 40.7128, Lon: -74.0060},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Helper H ~25m away sees it in nearby at radius 700.
	visible, err := f.svc.Nearby(helper, geo.Point{Lat: 40.7130, Lon: -74.0061}, 700)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != req.ID {
		t.Fatalf("Helper should see the request, got %+v", visible)
	}

	if _, err := f.svc.Accept(req.ID, helper); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := f.svc.IssuePasscode(req.ID, requester); err != nil {
		t.Fatalf("IssuePasscode failed: %v", err)
	}

	f.advance(time.Minute)

	got, err := f.svc.VerifyPasscode(req.ID, helper, "4821")
	if err != nil {
		t.Fatalf("VerifyPasscode failed: %v", err)
	}
	if got.Status != schema.StatusCompleted {
		t.Errorf("Expected completed, got %s", got.Status)
	}
}

func BenchmarkCreate(b *testing.B) {
	f := newFixture()
	for i := 0; i < b.N; i++ {
		f.advance(time.Millisecond)
		f.svc.Create(CreateInput{
			Owner:       requester,
			Category:    schema.CategoryGrocery,
			Description: fmt.Sprintf("run %d", i),
			Location:    &geo.Point{Lat: 40.7128, Lon: -74.0060},
		})
	}
}
