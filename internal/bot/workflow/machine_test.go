package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FAKES
// ============================================================================

type memSessions struct {
	mu     sync.Mutex
	drafts map[int64]*Draft
}

func newMemSessions() *memSessions {
	return &memSessions{drafts: make(map[int64]*Draft)}
}

func (m *memSessions) Get(adminID int64) (*Draft, bool) {
	d, ok := m.drafts[adminID]
	return d, ok
}

func (m *memSessions) Put(adminID int64, d *Draft) {
	m.drafts[adminID] = d
}

func (m *memSessions) Clear(adminID int64) {
	delete(m.drafts, adminID)
}

func (m *memSessions) Do(adminID int64, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

type fakeRelay struct {
	url   string
	err   error
	calls int
}

func (f *fakeRelay) Relay(ctx context.Context, fileID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeCatalog struct {
	products  map[int64]ProductInfo
	nextID    int64
	created   []ProductSpec
	updated   map[int64]ProductSpec
	createErr error
	updateErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: make(map[int64]ProductInfo),
		updated:  make(map[int64]ProductSpec),
		nextID:   1,
	}
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, spec ProductSpec) (ProductInfo, error) {
	if f.createErr != nil {
		return ProductInfo{}, f.createErr
	}
	f.created = append(f.created, spec)
	info := ProductInfo{
		ID:          f.nextID,
		Name:        spec.Name,
		Price:       spec.Price,
		Description: spec.Description,
		ImageURL:    spec.ImageURL,
		Sizes:       spec.Sizes,
	}
	f.products[f.nextID] = info
	f.nextID++
	return info, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id int64) (ProductInfo, error) {
	p, ok := f.products[id]
	if !ok {
		return ProductInfo{}, errors.New("not found")
	}
	return p, nil
}

func (f *fakeCatalog) UpdateProduct(ctx context.Context, id int64, spec ProductSpec) (ProductInfo, error) {
	if f.updateErr != nil {
		return ProductInfo{}, f.updateErr
	}
	if _, ok := f.products[id]; !ok {
		return ProductInfo{}, errors.New("not found")
	}
	f.updated[id] = spec
	p := ProductInfo{
		ID:          id,
		Name:        spec.Name,
		Price:       spec.Price,
		Description: spec.Description,
		ImageURL:    spec.ImageURL,
		Sizes:       spec.Sizes,
	}
	f.products[id] = p
	return p, nil
}

const testAdmin int64 = 42

func newTestMachine(t *testing.T) (*Machine, *memSessions, *fakeRelay, *fakeCatalog) {
	t.Helper()
	sessions := newMemSessions()
	rel := &fakeRelay{url: "/static/photo.jpg"}
	cat := newFakeCatalog()
	m := NewMachine(slog.Default(), sessions, rel, cat, []int64{testAdmin})
	return m, sessions, rel, cat
}

func text(adminID int64, s string) Input {
	return Input{AdminID: adminID, Text: s}
}

func photo(adminID int64, fileID string) Input {
	return Input{AdminID: adminID, PhotoFileID: fileID}
}

// ============================================================================
// AUTHORING FLOW
// ============================================================================

func TestAuthoringHappyPath(t *testing.T) {
	m, sessions, _, cat := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)

	steps := []Input{
		photo(testAdmin, "file-123"),
		text(testAdmin, "Shirt"),
		text(testAdmin, "1500"),
		text(testAdmin, "cotton blend"),
		text(testAdmin, "S:5"),
		text(testAdmin, "M:3"),
	}
	for _, in := range steps {
		_, handled := m.Handle(ctx, in)
		require.True(t, handled)
	}

	reply, handled := m.Handle(ctx, text(testAdmin, "done"))
	require.True(t, handled)
	assert.Contains(t, reply.Text, "added")

	require.Len(t, cat.created, 1)
	created := cat.created[0]
	assert.Equal(t, "Shirt", created.Name)
	assert.Equal(t, int64(1500), created.Price)
	assert.Equal(t, "cotton blend", created.Description)
	assert.Equal(t, map[string]int{"S": 5, "M": 3}, created.Sizes)
	assert.Equal(t, "/static/photo.jpg", created.ImageURL)

	_, ok := sessions.Get(testAdmin)
	assert.False(t, ok, "draft should be cleared after commit")
	assert.False(t, m.Active(testAdmin))
}

func TestActiveTracksConversationLifetime(t *testing.T) {
	m, _, _, _ := newTestMachine(t)
	ctx := context.Background()

	assert.False(t, m.Active(testAdmin))
	assert.False(t, m.Active(999), "unknown identity is never active")

	m.Begin(testAdmin)
	assert.True(t, m.Active(testAdmin))

	for _, in := range []Input{
		photo(testAdmin, "f"),
		text(testAdmin, "Shirt"),
		text(testAdmin, "1500"),
		text(testAdmin, "plain"),
		text(testAdmin, "done"),
	} {
		m.Handle(ctx, in)
	}
	assert.False(t, m.Active(testAdmin))
}

func TestSizesLastWriteWins(t *testing.T) {
	m, _, _, cat := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	for _, in := range []Input{
		photo(testAdmin, "f"),
		text(testAdmin, "Shirt"),
		text(testAdmin, "1500"),
		text(testAdmin, ""),
		text(testAdmin, "S:5"),
		text(testAdmin, "M:3"),
		text(testAdmin, "s: 2"),
		text(testAdmin, "Done"),
	} {
		m.Handle(ctx, in)
	}

	require.Len(t, cat.created, 1)
	assert.Equal(t, map[string]int{"S": 2, "M": 3}, cat.created[0].Sizes)
}

func TestNonAdminCannotBegin(t *testing.T) {
	m, sessions, _, _ := newTestMachine(t)

	reply := m.Begin(999)
	assert.Contains(t, reply.Text, "access")
	_, ok := sessions.Get(999)
	assert.False(t, ok)

	_, handled := m.Handle(context.Background(), text(999, "hello"))
	assert.False(t, handled)
}

func TestBeginOverwritesStaleDraft(t *testing.T) {
	m, sessions, _, _ := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	m.Handle(ctx, photo(testAdmin, "old-file"))
	m.Handle(ctx, text(testAdmin, "Old name"))

	m.Begin(testAdmin)
	d, ok := sessions.Get(testAdmin)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingPhoto, d.State)
	assert.Empty(t, d.Name)
	assert.Empty(t, d.PhotoFileID)
}

func TestPhotoRequiredBeforeAdvancing(t *testing.T) {
	m, sessions, _, _ := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	reply, handled := m.Handle(ctx, text(testAdmin, "not a photo"))
	require.True(t, handled)
	assert.Contains(t, reply.Text, "photo")

	d, _ := sessions.Get(testAdmin)
	assert.Equal(t, StateAwaitingPhoto, d.State)
}

func TestPriceMustParse(t *testing.T) {
	m, sessions, _, _ := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	m.Handle(ctx, photo(testAdmin, "f"))
	m.Handle(ctx, text(testAdmin, "Shirt"))

	reply, _ := m.Handle(ctx, text(testAdmin, "cheap"))
	assert.Contains(t, reply.Text, "number")
	d, _ := sessions.Get(testAdmin)
	assert.Equal(t, StateAwaitingPrice, d.State)

	m.Handle(ctx, text(testAdmin, " 1500 "))
	d, _ = sessions.Get(testAdmin)
	assert.Equal(t, StateAwaitingDescription, d.State)
	assert.Equal(t, int64(1500), d.Price)
}

func TestEmptyDescriptionAccepted(t *testing.T) {
	m, sessions, _, _ := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	m.Handle(ctx, photo(testAdmin, "f"))
	m.Handle(ctx, text(testAdmin, "Shirt"))
	m.Handle(ctx, text(testAdmin, "1500"))
	m.Handle(ctx, text(testAdmin, ""))

	d, _ := sessions.Get(testAdmin)
	assert.Equal(t, StateAwaitingSizes, d.State)
	assert.NotNil(t, d.Sizes)
}

func TestMalformedSizeEntryReprompts(t *testing.T) {
	m, sessions, _, _ := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	m.Handle(ctx, photo(testAdmin, "f"))
	m.Handle(ctx, text(testAdmin, "Shirt"))
	m.Handle(ctx, text(testAdmin, "1500"))
	m.Handle(ctx, text(testAdmin, "desc"))

	for _, bad := range []string{"S", "S:", "S:many", ":5"} {
		reply, _ := m.Handle(ctx, text(testAdmin, bad))
		assert.Contains(t, reply.Text, "format", "input %q", bad)
	}

	d, _ := sessions.Get(testAdmin)
	assert.Equal(t, StateAwaitingSizes, d.State)
	assert.Empty(t, d.Sizes)
}

func TestRelayFailurePreservesDraftForRetry(t *testing.T) {
	m, sessions, rel, cat := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	m.Handle(ctx, photo(testAdmin, "f"))
	m.Handle(ctx, text(testAdmin, "Shirt"))
	m.Handle(ctx, text(testAdmin, "1500"))
	m.Handle(ctx, text(testAdmin, "desc"))
	m.Handle(ctx, text(testAdmin, "S:5"))

	rel.err = errors.New("telegram down")
	reply, _ := m.Handle(ctx, text(testAdmin, "done"))
	assert.Contains(t, reply.Text, "retry")
	assert.Empty(t, cat.created)

	d, ok := sessions.Get(testAdmin)
	require.True(t, ok)
	assert.Equal(t, StateCommitting, d.State)
	assert.Equal(t, map[string]int{"S": 5}, d.Sizes)

	// Retry with the same token; no size data re-entered.
	rel.err = nil
	reply, _ = m.Handle(ctx, text(testAdmin, "done"))
	assert.Contains(t, reply.Text, "added")
	require.Len(t, cat.created, 1)
	assert.Equal(t, map[string]int{"S": 5}, cat.created[0].Sizes)
}

func TestCreateFailureDoesNotReuploadOnRetry(t *testing.T) {
	m, _, rel, cat := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	m.Handle(ctx, photo(testAdmin, "f"))
	m.Handle(ctx, text(testAdmin, "Shirt"))
	m.Handle(ctx, text(testAdmin, "1500"))
	m.Handle(ctx, text(testAdmin, "desc"))

	cat.createErr = errors.New("backend unreachable")
	reply, _ := m.Handle(ctx, text(testAdmin, "done"))
	assert.Contains(t, reply.Text, "retry")
	assert.Equal(t, 1, rel.calls)

	cat.createErr = nil
	reply, _ = m.Handle(ctx, text(testAdmin, "done"))
	assert.Contains(t, reply.Text, "added")
	assert.Equal(t, 1, rel.calls, "successful relay should not repeat")
	require.Len(t, cat.created, 1)
}

func TestNonTokenInputWhileCommitting(t *testing.T) {
	m, _, rel, _ := newTestMachine(t)
	ctx := context.Background()

	m.Begin(testAdmin)
	m.Handle(ctx, photo(testAdmin, "f"))
	m.Handle(ctx, text(testAdmin, "Shirt"))
	m.Handle(ctx, text(testAdmin, "1500"))
	m.Handle(ctx, text(testAdmin, "desc"))

	rel.err = errors.New("down")
	m.Handle(ctx, text(testAdmin, "done"))

	reply, handled := m.Handle(ctx, text(testAdmin, "what now"))
	require.True(t, handled)
	assert.Contains(t, reply.Text, "done")
}

// ============================================================================
// EDIT FLOW
// ============================================================================

func seedProduct(t *testing.T, cat *fakeCatalog) int64 {
	t.Helper()
	info, err := cat.CreateProduct(context.Background(), ProductSpec{
		Name:        "Hoodie",
		Price:       3000,
		Description: "warm",
		ImageURL:    "/static/old.jpg",
		Sizes:       map[string]int{"L": 1},
	})
	require.NoError(t, err)
	cat.created = nil
	return info.ID
}

func TestEditPriceReplacesOnlyPrice(t *testing.T) {
	m, sessions, _, cat := newTestMachine(t)
	ctx := context.Background()
	id := seedProduct(t, cat)

	reply := m.BeginEdit(ctx, testAdmin, id)
	assert.Contains(t, reply.Text, "Hoodie")

	reply = m.ChooseField(testAdmin, FieldPrice)
	assert.Contains(t, reply.Text, "price")

	reply, handled := m.Handle(ctx, text(testAdmin, "2500"))
	require.True(t, handled)
	assert.Contains(t, reply.Text, "updated")

	spec := cat.updated[id]
	assert.Equal(t, int64(2500), spec.Price)
	assert.Equal(t, "Hoodie", spec.Name)
	assert.Equal(t, "warm", spec.Description)
	assert.Equal(t, "/static/old.jpg", spec.ImageURL)
	assert.Equal(t, map[string]int{"L": 1}, spec.Sizes)

	_, ok := sessions.Get(testAdmin)
	assert.False(t, ok)
}

func TestEditFieldByText(t *testing.T) {
	m, _, _, cat := newTestMachine(t)
	ctx := context.Background()
	id := seedProduct(t, cat)

	m.BeginEdit(ctx, testAdmin, id)
	m.Handle(ctx, text(testAdmin, "name"))
	reply, _ := m.Handle(ctx, text(testAdmin, "Zip Hoodie"))
	assert.Contains(t, reply.Text, "updated")
	assert.Equal(t, "Zip Hoodie", cat.updated[id].Name)
}

func TestEditSizesReplacesWholeMap(t *testing.T) {
	m, _, _, cat := newTestMachine(t)
	ctx := context.Background()
	id := seedProduct(t, cat)

	m.BeginEdit(ctx, testAdmin, id)
	m.ChooseField(testAdmin, FieldSizes)
	reply, _ := m.Handle(ctx, text(testAdmin, "s: 4, M:2, s:7"))
	assert.Contains(t, reply.Text, "updated")
	assert.Equal(t, map[string]int{"S": 7, "M": 2}, cat.updated[id].Sizes)
}

func TestEditUnknownProduct(t *testing.T) {
	m, sessions, _, _ := newTestMachine(t)

	reply := m.BeginEdit(context.Background(), testAdmin, 999)
	assert.Contains(t, reply.Text, "not found")
	_, ok := sessions.Get(testAdmin)
	assert.False(t, ok)
}

func TestEditUpdateFailureLeavesIdle(t *testing.T) {
	m, sessions, _, cat := newTestMachine(t)
	ctx := context.Background()
	id := seedProduct(t, cat)

	m.BeginEdit(ctx, testAdmin, id)
	m.ChooseField(testAdmin, FieldPrice)

	cat.updateErr = errors.New("backend unreachable")
	reply, _ := m.Handle(ctx, text(testAdmin, "2500"))
	assert.Contains(t, reply.Text, "failed")

	_, ok := sessions.Get(testAdmin)
	assert.False(t, ok, "failed edit must not leave a parked draft")
	assert.Empty(t, cat.updated)
}

func TestEditBadPriceReprompts(t *testing.T) {
	m, sessions, _, cat := newTestMachine(t)
	ctx := context.Background()
	id := seedProduct(t, cat)

	m.BeginEdit(ctx, testAdmin, id)
	m.ChooseField(testAdmin, FieldPrice)

	reply, _ := m.Handle(ctx, text(testAdmin, "free"))
	assert.Contains(t, reply.Text, "number")
	d, ok := sessions.Get(testAdmin)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingValue, d.State)
}
