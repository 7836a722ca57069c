package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/repository"
)

type transferCall struct {
	classID string
	q       int
}

type memClassRepo struct {
	mu           sync.Mutex
	classes      map[string]models.Class
	transfers    []transferCall
	restores     []transferCall
	failTransfer map[string]error
	findErr      error
}

func newMemClassRepo(classes ...models.Class) *memClassRepo {
	r := &memClassRepo{classes: map[string]models.Class{}, failTransfer: map[string]error{}}
	for _, c := range classes {
		r.classes[c.ID.Hex()] = c
	}
	return r
}

func (r *memClassRepo) get(id string) models.Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.classes[id]
}

func (r *memClassRepo) list(keep func(models.Class) bool) []models.Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Class{}
	for _, c := range r.classes {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (r *memClassRepo) FindAll(ctx context.Context) ([]models.Class, error) {
	return r.list(func(models.Class) bool { return true }), nil
}

func (r *memClassRepo) FindByStatus(ctx context.Context, status models.ClassStatus) ([]models.Class, error) {
	return r.list(func(c models.Class) bool { return c.Status == status }), nil
}

func (r *memClassRepo) FindByInstructor(ctx context.Context, email string) ([]models.Class, error) {
	return r.list(func(c models.Class) bool { return c.InstructorEmail == email }), nil
}

func (r *memClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if _, err := repository.ParseObjectID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *memClassRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Class{}
	for _, id := range ids {
		if c, ok := r.classes[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memClassRepo) Insert(ctx context.Context, class *models.Class) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	class.ID = primitive.NewObjectID()
	r.classes[class.ID.Hex()] = *class
	return class.ID.Hex(), nil
}

func (r *memClassRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.UpdateResult, error) {
	if _, err := repository.ParseObjectID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classes[id]
	if !ok {
		return &models.UpdateResult{}, nil
	}
	if v, ok := fields["status"].(string); ok {
		c.Status = models.ClassStatus(v)
	}
	if v, ok := fields["feedback"].(string); ok {
		c.Feedback = v
	}
	r.classes[id] = c
	return &models.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *memClassRepo) TransferSeats(ctx context.Context, id string, q int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers = append(r.transfers, transferCall{id, q})
	if err := r.failTransfer[id]; err != nil {
		return err
	}
	c, ok := r.classes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.AvailableSeats < q {
		return repository.ErrInsufficientSeats
	}
	c.AvailableSeats -= q
	c.Enrolled += q
	r.classes[id] = c
	return nil
}

func (r *memClassRepo) RestoreSeats(ctx context.Context, id string, q int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restores = append(r.restores, transferCall{id, q})
	c, ok := r.classes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.Enrolled < q {
		return repository.ErrInsufficientSeats
	}
	c.AvailableSeats += q
	c.Enrolled -= q
	r.classes[id] = c
	return nil
}

type memCartRepo struct {
	mu        sync.Mutex
	items     map[string]models.CartItem
	deleteErr error
	findErr   error
}

func newMemCartRepo(items ...models.CartItem) *memCartRepo {
	r := &memCartRepo{items: map[string]models.CartItem{}}
	for _, it := range items {
		r.items[it.ID.Hex()] = it
	}
	return r
}

func (r *memCartRepo) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[id]
	return ok
}

func (r *memCartRepo) FindByEmail(ctx context.Context, email string) ([]models.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.CartItem{}
	for _, it := range r.items {
		if it.Email == email {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memCartRepo) FindByID(ctx context.Context, id string) (*models.CartItem, error) {
	if _, err := repository.ParseObjectID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &it, nil
}

func (r *memCartRepo) FindByIDs(ctx context.Context, ids []string) ([]models.CartItem, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.CartItem{}
	seen := map[string]bool{}
	for _, id := range ids {
		if it, ok := r.items[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *memCartRepo) Insert(ctx context.Context, item *models.CartItem) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = primitive.NewObjectID()
	r.items[item.ID.Hex()] = *item
	return item.ID.Hex(), nil
}

func (r *memCartRepo) InsertMany(ctx context.Context, items []models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		if _, exists := r.items[it.ID.Hex()]; !exists {
			r.items[it.ID.Hex()] = it
		}
	}
	return nil
}

func (r *memCartRepo) DeleteByID(ctx context.Context, id string) (int64, error) {
	return r.DeleteByIDs(ctx, []string{id})
}

func (r *memCartRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

type memPaymentRepo struct {
	mu        sync.Mutex
	payments  []models.Payment
	insertErr error
	// uniqueTx mirrors the unique transactionId index of the Mongo ledger.
	uniqueTx bool
}

func (r *memPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
}

func (r *memPaymentRepo) last() models.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payments[len(r.payments)-1]
}

func (r *memPaymentRepo) Insert(ctx context.Context, p *models.Payment) (string, error) {
	if r.insertErr != nil {
		return "", r.insertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uniqueTx && p.TransactionID != "" {
		for _, existing := range r.payments {
			if existing.TransactionID == p.TransactionID {
				return "", repository.ErrDuplicate
			}
		}
	}
	r.payments = append(r.payments, *p)
	return p.ID.Hex(), nil
}

func (r *memPaymentRepo) FindByEmail(ctx context.Context, email string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Payment{}
	for i := len(r.payments) - 1; i >= 0; i-- {
		if r.payments[i].Email == email {
			out = append(out, r.payments[i])
		}
	}
	return out, nil
}

type memIdempotency struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{values: map[string]string{}}
}

func (m *memIdempotency) Reserve(ctx context.Context, key string, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = repository.IdempotencyPending
	return true, nil
}

func (m *memIdempotency) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memIdempotency) Save(ctx context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memIdempotency) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.EnrollmentSettledEvent
}

func (e *recordingEvents) PublishEnrollmentSettled(ctx context.Context, evt *models.EnrollmentSettledEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, *evt)
	return nil
}
