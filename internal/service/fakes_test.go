package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"courtsync/internal/external/ayo"
	"courtsync/internal/models"
	"courtsync/internal/repository"
)

// memState is one consistent snapshot of the four tables.
type memState struct {
	courts   map[int64]models.Court
	hours    []models.OperatingHour
	users    map[int64]models.User
	bookings map[int64]models.Booking
}

func newMemState() memState {
	return memState{
		courts:   map[int64]models.Court{},
		users:    map[int64]models.User{},
		bookings: map[int64]models.Booking{},
	}
}

func (s memState) clone() memState {
	c := newMemState()
	for k, v := range s.courts {
		c.courts[k] = v
	}
	c.hours = append([]models.OperatingHour(nil), s.hours...)
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	return c
}

// memDB is an in-memory, transactional stand-in for the SQL unit of work.
type memDB struct {
	mu        sync.Mutex
	state     memState
	nextID    int64
	begins    int
	commits   int
	rollbacks int
	writes    int

	failBookingCreate func(b *models.Booking) error
	failCourtCreate   func(c *models.Court) error
}

func newMemDB() *memDB {
	return &memDB{state: newMemState()}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) snapshot() memState {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.clone()
}

func (db *memDB) seedCourt(c models.Court) models.Court {
	db.mu.Lock()
	defer db.mu.Unlock()
	c.ID = db.id()
	db.state.courts[c.ID] = c
	return c
}

func (db *memDB) seedUser(u models.User) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u.ID = db.id()
	db.state.users[u.ID] = u
	return u
}

func (db *memDB) Begin(context.Context) (repository.Tx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.begins++
	return &memTx{db: db, state: db.state.clone(), savepoints: map[string]memState{}}, nil
}

// committed-state reader used by the lookup operations
func (db *memDB) GetByID(_ context.Context, id int64) (*models.Court, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return courtByID(db.state, id), nil
}

func (db *memDB) GetByAyoFieldID(_ context.Context, fieldID string) (*models.Court, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return courtByField(db.state, fieldID), nil
}

func courtByID(s memState, id int64) *models.Court {
	c, ok := s.courts[id]
	if !ok {
		return nil
	}
	return &c
}

func courtByField(s memState, fieldID string) *models.Court {
	for _, c := range s.courts {
		if c.AyoFieldID != nil && *c.AyoFieldID == fieldID {
			c := c
			return &c
		}
	}
	return nil
}

func (s memState) sortedBookings() []models.Booking {
	out := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memTx struct {
	db         *memDB
	state      memState
	savepoints map[string]memState
	done       bool
}

func (tx *memTx) Courts() repository.CourtStore                 { return memCourts{tx} }
func (tx *memTx) OperatingHours() repository.OperatingHourStore { return memHours{tx} }
func (tx *memTx) Users() repository.UserStore                   { return memUsers{tx} }
func (tx *memTx) Bookings() repository.BookingStore             { return memBookings{tx} }

func (tx *memTx) Savepoint(_ context.Context, name string) error {
	tx.savepoints[name] = tx.state.clone()
	return nil
}

func (tx *memTx) RollbackToSavepoint(_ context.Context, name string) error {
	sp, ok := tx.savepoints[name]
	if !ok {
		return errors.New("no such savepoint " + name)
	}
	tx.state = sp.clone()
	return nil
}

func (tx *memTx) ReleaseSavepoint(_ context.Context, name string) error {
	delete(tx.savepoints, name)
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return errors.New("transaction already finished")
	}
	tx.done = true
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.state = tx.state
	tx.db.commits++
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.rollbacks++
	return nil
}

func (tx *memTx) write() {
	tx.db.mu.Lock()
	tx.db.writes++
	tx.db.mu.Unlock()
}

func (tx *memTx) newID() int64 {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	return tx.db.id()
}

type memCourts struct{ tx *memTx }

func (m memCourts) GetByID(_ context.Context, id int64) (*models.Court, error) {
	return courtByID(m.tx.state, id), nil
}

func (m memCourts) GetByAyoFieldID(_ context.Context, fieldID string) (*models.Court, error) {
	return courtByField(m.tx.state, fieldID), nil
}

func (m memCourts) Create(_ context.Context, c *models.Court) error {
	m.tx.write()
	if f := m.tx.db.failCourtCreate; f != nil {
		if err := f(c); err != nil {
			return err
		}
	}
	if c.AyoFieldID != nil && courtByField(m.tx.state, *c.AyoFieldID) != nil {
		return errors.New("duplicate ayo_field_id")
	}
	c.ID = m.tx.newID()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.tx.state.courts[c.ID] = *c
	return nil
}

func (m memCourts) Update(_ context.Context, c *models.Court) error {
	m.tx.write()
	if _, ok := m.tx.state.courts[c.ID]; !ok {
		return errors.New("court not found")
	}
	m.tx.state.courts[c.ID] = *c
	return nil
}

type memHours struct{ tx *memTx }

func (m memHours) CreateBatch(_ context.Context, hours []models.OperatingHour) error {
	m.tx.write()
	for i := range hours {
		hours[i].ID = m.tx.newID()
		m.tx.state.hours = append(m.tx.state.hours, hours[i])
	}
	return nil
}

type memUsers struct{ tx *memTx }

func (m memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.tx.state.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m memUsers) Create(_ context.Context, u *models.User) error {
	m.tx.write()
	u.ID = m.tx.newID()
	u.CreatedAt = time.Now()
	m.tx.state.users[u.ID] = *u
	return nil
}

type memBookings struct{ tx *memTx }

func (m memBookings) FindBySlot(_ context.Context, courtID int64, start, end time.Time) (*models.Booking, error) {
	for _, b := range m.tx.state.sortedBookings() {
		if b.CourtID == courtID && b.StartTime.Equal(start) && b.EndTime.Equal(end) {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (m memBookings) Create(_ context.Context, b *models.Booking) error {
	m.tx.write()
	if f := m.tx.db.failBookingCreate; f != nil {
		if err := f(b); err != nil {
			return err
		}
	}
	b.ID = m.tx.newID()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.tx.state.bookings[b.ID] = *b
	return nil
}

func (m memBookings) Update(_ context.Context, b *models.Booking) error {
	m.tx.write()
	if _, ok := m.tx.state.bookings[b.ID]; !ok {
		return errors.New("booking not found")
	}
	m.tx.state.bookings[b.ID] = *b
	return nil
}

// fakeFields serves a canned list-fields response.
type fakeFields struct {
	fields  []ayo.Field
	invalid []error
	result  *ayo.Result
	err     error
	calls   int
}

func (f *fakeFields) GetFields(context.Context, map[string]string) (*ayo.FieldsResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := f.result
	if res == nil {
		res = &ayo.Result{Success: true, StatusCode: 200}
	}
	out := &ayo.FieldsResult{Result: res, Invalid: f.invalid}
	if res.Success {
		out.Fields = append([]ayo.Field(nil), f.fields...)
	}
	return out, nil
}

func (f *fakeFields) GetActiveFields(ctx context.Context) (*ayo.FieldsResult, error) {
	res, err := f.GetFields(ctx, nil)
	if err != nil || !res.Success {
		return res, err
	}
	var active []ayo.Field
	for _, fl := range res.Fields {
		if fl.Active() {
			active = append(active, fl)
		}
	}
	res.Fields = active
	return res, nil
}

// fakeBookings serves a canned list-bookings response.
type fakeBookings struct {
	bookings []ayo.Booking
	invalid  []error
	result   *ayo.Result
	err      error
	calls    int
	filters  map[string]string
}

func (f *fakeBookings) GetBookings(_ context.Context, filters map[string]string) (*ayo.BookingsResult, error) {
	f.calls++
	f.filters = filters
	if f.err != nil {
		return nil, f.err
	}
	res := f.result
	if res == nil {
		res = &ayo.Result{Success: true, StatusCode: 200}
	}
	out := &ayo.BookingsResult{Result: res, Invalid: f.invalid}
	if res.Success {
		out.Bookings = append([]ayo.Booking(nil), f.bookings...)
	}
	return out, nil
}

type recordingListener struct {
	mu   sync.Mutex
	runs []*models.SyncRun
	err  error
}

func (l *recordingListener) Name() string { return "recording" }

func (l *recordingListener) SyncFinished(_ context.Context, run *models.SyncRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
	return l.err
}

func field(id, name, status string, active int, sport string) ayo.Field {
	return ayo.Field{
		ID:        ayo.FlexibleString(id),
		Name:      name,
		Status:    status,
		IsActive:  ayo.FlexibleInt(active),
		SportName: sport,
	}
}

func strPtr(s string) *string { return &s }

func price(v float64) *ayo.FlexibleFloat {
	f := ayo.FlexibleFloat(v)
	return &f
}
