package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/justmusic/justmusic-api/internal/models"
	"github.com/justmusic/justmusic-api/internal/repository"
	"github.com/justmusic/justmusic-api/pkg/payment"
)

var duplicateKeyErr = mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*models.User
	findErr error
	listErr error
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]*models.User{}}
	for i := range users {
		user := users[i]
		if user.ID.IsZero() {
			user.ID = primitive.NewObjectID()
		}
		repo.users[user.Email] = &user
	}
	return repo
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	user, ok := f.users[email]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copy := *user
	return &copy, nil
}

func (f *fakeUserRepo) InsertIfAbsent(ctx context.Context, user *models.User) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return false, "", nil
	}
	stored := *user
	stored.ID = primitive.NewObjectID()
	f.users[user.Email] = &stored
	return true, stored.ID.Hex(), nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	users := []models.User{}
	for _, user := range f.users {
		users = append(users, *user)
	}
	return users, nil
}

func (f *fakeUserRepo) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	all, err := f.List(ctx)
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	for _, user := range all {
		if user.Role == role {
			users = append(users, user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) FindByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []models.User{}
	for _, email := range emails {
		if user, ok := f.users[email]; ok {
			users = append(users, *user)
		}
	}
	// The store returns matches in its own order, not the order asked for.
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (f *fakeUserRepo) UpdateRole(ctx context.Context, id string, role models.UserRole) (models.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.UpdateResult{}, repository.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == oid {
			res := models.UpdateResult{MatchedCount: 1}
			if user.Role != role {
				user.Role = role
				res.ModifiedCount = 1
			}
			return res, nil
		}
	}
	return models.UpdateResult{}, nil
}

type fakeClassRepo struct {
	mu      sync.Mutex
	classes map[string]*models.Class
	order   []string
	seatErr error
}

func newFakeClassRepo(classes ...models.Class) *fakeClassRepo {
	repo := &fakeClassRepo{classes: map[string]*models.Class{}}
	for _, class := range classes {
		repo.add(class)
	}
	return repo
}

func (f *fakeClassRepo) add(class models.Class) string {
	if class.ID.IsZero() {
		class.ID = primitive.NewObjectID()
	}
	id := class.ID.Hex()
	f.classes[id] = &class
	f.order = append(f.order, id)
	return id
}

func (f *fakeClassRepo) get(id string) models.Class {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.classes[id]
}

func (f *fakeClassRepo) snapshot() map[string]models.Class {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.Class, len(f.classes))
	for id, class := range f.classes {
		out[id] = *class
	}
	return out
}

func (f *fakeClassRepo) restore(state map[string]models.Class) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, class := range state {
		class := class
		f.classes[id] = &class
	}
}

func (f *fakeClassRepo) Create(ctx context.Context, class *models.Class) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	class.ID = primitive.NewObjectID()
	return f.add(*class), nil
}

func (f *fakeClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, repository.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	class, ok := f.classes[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copy := *class
	return &copy, nil
}

func (f *fakeClassRepo) filter(keep func(models.Class) bool) []models.Class {
	f.mu.Lock()
	defer f.mu.Unlock()
	classes := []models.Class{}
	for _, id := range f.order {
		if class := f.classes[id]; keep(*class) {
			classes = append(classes, *class)
		}
	}
	return classes
}

func (f *fakeClassRepo) ListAll(ctx context.Context) ([]models.Class, error) {
	return f.filter(func(models.Class) bool { return true }), nil
}

func (f *fakeClassRepo) ListByInstructor(ctx context.Context, email string) ([]models.Class, error) {
	return f.filter(func(c models.Class) bool { return c.InstructorEmail == email }), nil
}

func (f *fakeClassRepo) ListByStatus(ctx context.Context, status models.ClassStatus) ([]models.Class, error) {
	return f.filter(func(c models.Class) bool { return c.Status == status }), nil
}

func (f *fakeClassRepo) update(id string, mutate func(*models.Class)) (models.UpdateResult, error) {
	if !primitive.IsValidObjectID(id) {
		return models.UpdateResult{}, repository.ErrInvalidID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	class, ok := f.classes[id]
	if !ok {
		return models.UpdateResult{}, nil
	}
	mutate(class)
	return models.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeClassRepo) UpdateStatus(ctx context.Context, id string, status models.ClassStatus) (models.UpdateResult, error) {
	return f.update(id, func(c *models.Class) { c.Status = status })
}

func (f *fakeClassRepo) UpdateFeedback(ctx context.Context, id, feedback string) (models.UpdateResult, error) {
	return f.update(id, func(c *models.Class) { c.Feedback = feedback })
}

func (f *fakeClassRepo) SetCounters(ctx context.Context, id string, enrolled, seats int) (models.UpdateResult, error) {
	return f.update(id, func(c *models.Class) {
		c.TotalEnrolledStudent = enrolled
		c.AvailableSeat = seats
	})
}

func (f *fakeClassRepo) ConsumeSeat(ctx context.Context, id string) (*models.Class, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seatErr != nil {
		return nil, false, f.seatErr
	}
	class, ok := f.classes[id]
	if !ok || class.AvailableSeat <= 0 {
		return nil, false, nil
	}
	class.AvailableSeat--
	class.TotalEnrolledStudent++
	copy := *class
	return &copy, true, nil
}

func (f *fakeClassRepo) TopApproved(ctx context.Context, limit int) ([]models.Class, error) {
	classes := f.filter(func(c models.Class) bool { return c.Status == models.ClassStatusApproved })
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].TotalEnrolledStudent > classes[j].TotalEnrolledStudent
	})
	if len(classes) > limit {
		classes = classes[:limit]
	}
	return classes, nil
}

type fakeSelectionRepo struct {
	mu        sync.Mutex
	rows      map[string]*models.StudentClassSelection
	insertErr error
	markErr   error
	reverts   int
	deletes   int
}

func newFakeSelectionRepo() *fakeSelectionRepo {
	return &fakeSelectionRepo{rows: map[string]*models.StudentClassSelection{}}
}

func selectionKey(classID, email string) string {
	return classID + "|" + email
}

func (f *fakeSelectionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeSelectionRepo) get(classID, email string) (models.StudentClassSelection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[selectionKey(classID, email)]
	if !ok {
		return models.StudentClassSelection{}, false
	}
	return *row, true
}

func (f *fakeSelectionRepo) snapshot() map[string]models.StudentClassSelection {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.StudentClassSelection, len(f.rows))
	for key, row := range f.rows {
		out[key] = *row
	}
	return out
}

func (f *fakeSelectionRepo) restore(state map[string]models.StudentClassSelection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = make(map[string]*models.StudentClassSelection, len(state))
	for key, row := range state {
		row := row
		f.rows[key] = &row
	}
}

func (f *fakeSelectionRepo) Insert(ctx context.Context, sel *models.StudentClassSelection) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return "", f.insertErr
	}
	key := selectionKey(sel.ClassID, sel.StudentEmail)
	if _, ok := f.rows[key]; ok {
		return "", duplicateKeyErr
	}
	stored := *sel
	stored.ID = primitive.NewObjectID()
	sel.ID = stored.ID
	f.rows[key] = &stored
	return stored.ID.Hex(), nil
}

func (f *fakeSelectionRepo) FindByKey(ctx context.Context, classID, email string) (*models.StudentClassSelection, error) {
	row, ok := f.get(classID, email)
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &row, nil
}

func (f *fakeSelectionRepo) DeletePending(ctx context.Context, classID, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := selectionKey(classID, email)
	row, ok := f.rows[key]
	if !ok || row.PaymentStatus != models.PaymentStatusPending {
		return 0, nil
	}
	delete(f.rows, key)
	return 1, nil
}

func (f *fakeSelectionRepo) list(keep func(models.StudentClassSelection) bool) []models.StudentClassSelection {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := []models.StudentClassSelection{}
	for _, row := range f.rows {
		if keep(*row) {
			rows = append(rows, *row)
		}
	}
	return rows
}

func (f *fakeSelectionRepo) ListByStudent(ctx context.Context, email string, status models.PaymentStatus) ([]models.StudentClassSelection, error) {
	rows := f.list(func(r models.StudentClassSelection) bool {
		return r.StudentEmail == email && r.PaymentStatus == status
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].SelectedAt.Before(rows[j].SelectedAt) })
	return rows, nil
}

func (f *fakeSelectionRepo) PaymentHistory(ctx context.Context, email string) ([]models.StudentClassSelection, error) {
	rows := f.list(func(r models.StudentClassSelection) bool {
		return r.StudentEmail == email && r.PaymentStatus == models.PaymentStatusSuccessful
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].PaymentDate.After(*rows[j].PaymentDate) })
	return rows, nil
}

func (f *fakeSelectionRepo) MarkSuccessful(ctx context.Context, classID, email string, details models.PaymentDetails) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return false, f.markErr
	}
	row, ok := f.rows[selectionKey(classID, email)]
	if !ok || row.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	paidAt := details.PaymentDate
	row.PaymentStatus = models.PaymentStatusSuccessful
	row.PaymentDate = &paidAt
	row.TransactionID = details.TransactionID
	return true, nil
}

func (f *fakeSelectionRepo) RevertToPending(ctx context.Context, classID, email, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reverts++
	row, ok := f.rows[selectionKey(classID, email)]
	if ok && row.PaymentStatus == models.PaymentStatusSuccessful && row.TransactionID == transactionID {
		row.PaymentStatus = models.PaymentStatusPending
		row.PaymentDate = nil
		row.TransactionID = ""
	}
	return nil
}

func (f *fakeSelectionRepo) DeleteByTransaction(ctx context.Context, classID, email, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	key := selectionKey(classID, email)
	if row, ok := f.rows[key]; ok && row.TransactionID == transactionID {
		delete(f.rows, key)
	}
	return nil
}

func (f *fakeSelectionRepo) CountSuccessfulByClass(ctx context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, row := range f.rows {
		if row.PaymentStatus == models.PaymentStatusSuccessful {
			counts[row.ClassID]++
		}
	}
	return counts, nil
}

// fakeTx runs fn and restores both stores when it fails, like an aborted
// transaction would.
type fakeTx struct {
	enabled    bool
	classes    *fakeClassRepo
	selections *fakeSelectionRepo
	mu         sync.Mutex
	runs       int
}

func (f *fakeTx) SupportsTransactions() bool { return f.enabled }

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	classes := f.classes.snapshot()
	selections := f.selections.snapshot()
	if err := fn(ctx); err != nil {
		f.classes.restore(classes)
		f.selections.restore(selections)
		return err
	}
	return nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeInvalidator) InvalidateStats(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeProcessor struct {
	requests []payment.IntentRequest
	err      error
}

func (f *fakeProcessor) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret", Amount: req.Amount, Currency: req.Currency}, nil
}

var errStoreDown = errors.New("store unavailable")
