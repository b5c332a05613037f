// Package queue hands out department queue numbers per business day.
//
// Numbers for one (department, day) form a contiguous run starting at 1. Calls for the
// same key are serialized; unrelated departments never wait on each other. The counter
// itself lives behind ports.CounterStore, while the waiting and serving bookkeeping is
// kept in process.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/kiosk/internal/keylock"
	"github.com/aretw0/kiosk/internal/logging"
	"github.com/aretw0/kiosk/pkg/domain"
	"github.com/aretw0/kiosk/pkg/ports"
)

// DefaultMinutesPerPatient is the fixed per-patient wait estimate.
const DefaultMinutesPerPatient = 15

// DayLayout formats business days.
const DayLayout = "2006-01-02"

type ledgerKey struct {
	department domain.Department
	day        string
}

func (k ledgerKey) String() string {
	return string(k.department) + "/" + k.day
}

// ledger is guarded by the per-key lock, not by Allocator.mu.
type ledger struct {
	seeded  bool
	last    int
	serving int
	waiting []int
}

// pruner is implemented by stores that can drop past days explicitly.
type pruner interface {
	Prune(ctx context.Context, keep string) (int64, error)
}

// Allocator issues queue numbers and tracks who is waiting and who is being served.
type Allocator struct {
	store  ports.CounterStore
	locks  *keylock.Map
	logger *slog.Logger

	now               func() time.Time
	loc               *time.Location
	minutesPerPatient int
	locate            func(domain.Department) string

	mu      sync.Mutex
	ledgers map[ledgerKey]*ledger
	today   string
}

// Option configures the Allocator.
type Option func(*Allocator)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// WithLocation sets the time zone whose midnight starts a business day.
func WithLocation(loc *time.Location) Option {
	return func(a *Allocator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithMinutesPerPatient sets the per-patient wait estimate.
func WithMinutesPerPatient(m int) Option {
	return func(a *Allocator) {
		if m > 0 {
			a.minutesPerPatient = m
		}
	}
}

// WithLocator sets how tickets and statuses get a department location.
func WithLocator(fn func(domain.Department) string) Option {
	return func(a *Allocator) {
		a.locate = fn
	}
}

// WithLogger configures a logger for the Allocator.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

// New creates an allocator backed by store.
func New(store ports.CounterStore, opts ...Option) *Allocator {
	a := &Allocator{
		store:             store,
		locks:             keylock.New(),
		logger:            logging.NewNop(),
		now:               time.Now,
		loc:               time.Local,
		minutesPerPatient: DefaultMinutesPerPatient,
		locate:            func(domain.Department) string { return "" },
		ledgers:           make(map[ledgerKey]*ledger),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BusinessDay returns the business day t falls in.
func (a *Allocator) BusinessDay(t time.Time) string {
	return t.In(a.loc).Format(DayLayout)
}

// Today returns the current business day.
func (a *Allocator) Today() string {
	return a.BusinessDay(a.now())
}

// MinutesPerPatient returns the configured estimate.
func (a *Allocator) MinutesPerPatient() int {
	return a.minutesPerPatient
}

// ledger returns the bookkeeping for k, creating it on first use.
// Starting a new current day drops the ledgers of every other day.
func (a *Allocator) ledger(k ledgerKey) *ledger {
	a.mu.Lock()
	defer a.mu.Unlock()

	if l, ok := a.ledgers[k]; ok {
		return l
	}
	if today := a.BusinessDay(a.now()); k.day == today && a.today != today {
		for old := range a.ledgers {
			if old.day != today {
				delete(a.ledgers, old)
			}
		}
		if a.today != "" {
			a.logger.Info("Business day rolled over", "from", a.today, "to", today)
			a.pruneStore(today)
		}
		a.today = today
	}
	l := &ledger{}
	a.ledgers[k] = l
	return l
}

func (a *Allocator) pruneStore(keep string) {
	p, ok := a.store.(pruner)
	if !ok {
		return
	}
	go func() {
		n, err := p.Prune(context.Background(), keep)
		if err != nil {
			a.logger.Warn("Failed to prune past queue counters", "keep", keep, "err", err)
			return
		}
		a.logger.Debug("Pruned past queue counters", "keep", keep, "count", n)
	}()
}

// seed loads the last issued number from the store the first time a key is touched.
// The caller holds the key lock.
func (a *Allocator) seed(ctx context.Context, k ledgerKey, l *ledger) error {
	if l.seeded {
		return nil
	}
	cur, err := a.store.Current(ctx, k.department, k.day)
	if err != nil {
		return fmt.Errorf("failed to load queue %s: %w", k, err)
	}
	l.last = cur
	l.seeded = true
	return nil
}

// withLedger runs fn on k's seeded ledger while holding k's lock.
func (a *Allocator) withLedger(ctx context.Context, k ledgerKey, fn func(*ledger) error) error {
	return a.locks.WithLock(ctx, k.String(), func(ctx context.Context) error {
		l := a.ledger(k)
		if err := a.seed(ctx, k, l); err != nil {
			return err
		}
		return fn(l)
	})
}

// Next issues the next number for (department, day).
//
// It panics with *domain.DuplicateAllocationError if the store hands out anything but
// the number after the last one issued, since continuing would give two patients the
// same ticket.
func (a *Allocator) Next(ctx context.Context, department domain.Department, day string) (int, error) {
	k := ledgerKey{department, day}
	var n int
	err := a.withLedger(ctx, k, func(l *ledger) error {
		var err error
		n, err = a.allocate(ctx, k, l)
		return err
	})
	return n, err
}

// allocate takes the next number from the store. The caller holds k's lock.
func (a *Allocator) allocate(ctx context.Context, k ledgerKey, l *ledger) (int, error) {
	got, err := a.store.Increment(ctx, k.department, k.day)
	if err != nil {
		// The backend may have taken the number before failing; reseed on the next call.
		l.seeded = false
		return 0, fmt.Errorf("failed to allocate in queue %s: %w", k, err)
	}
	if got != l.last+1 {
		a.logger.Error("Queue numbering broken", "queue", k.String(), "expected", l.last+1, "got", got)
		panic(&domain.DuplicateAllocationError{
			Department: string(k.department),
			Day:        k.day,
			Expected:   l.last + 1,
			Got:        got,
		})
	}
	l.last = got
	l.waiting = append(l.waiting, got)
	return got, nil
}

// CurrentServing returns the number being served for (department, day), or 0.
func (a *Allocator) CurrentServing(ctx context.Context, department domain.Department, day string) (int, error) {
	var n int
	err := a.withLedger(ctx, ledgerKey{department, day}, func(l *ledger) error {
		n = l.serving
		return nil
	})
	return n, err
}

// Status summarises today's queue for department.
func (a *Allocator) Status(ctx context.Context, department domain.Department) (domain.QueueStatus, error) {
	st := domain.QueueStatus{Department: department, Location: a.locate(department)}
	err := a.withLedger(ctx, ledgerKey{department, a.Today()}, func(l *ledger) error {
		st.Current = l.serving
		st.Waiting = len(l.waiting)
		st.EstimatedWaitMinutes = st.Waiting * a.minutesPerPatient
		return nil
	})
	return st, err
}

// Issue allocates today's next number for department and returns the full ticket.
func (a *Allocator) Issue(ctx context.Context, department domain.Department) (domain.QueueTicket, error) {
	now := a.now()
	day := a.BusinessDay(now)
	k := ledgerKey{department, day}

	t := domain.QueueTicket{
		Department:  department,
		IssuedAt:    now,
		BusinessDay: day,
		Location:    a.locate(department),
	}
	err := a.withLedger(ctx, k, func(l *ledger) error {
		n, err := a.allocate(ctx, k, l)
		if err != nil {
			return err
		}
		t.QueueNumber = n
		t.CurrentNumber = l.serving
		t.EstimatedWaitMinutes = len(l.waiting) * a.minutesPerPatient
		return nil
	})
	if err != nil {
		return domain.QueueTicket{}, err
	}

	a.logger.Debug("Ticket issued", "department", department, "day", day, "number", t.QueueNumber)
	return t, nil
}

// CallNext moves the lowest waiting number of today's queue to serving and returns it.
// The previously served ticket is considered complete. It returns 0 when nobody waits.
func (a *Allocator) CallNext(ctx context.Context, department domain.Department) (int, error) {
	var n int
	err := a.withLedger(ctx, ledgerKey{department, a.Today()}, func(l *ledger) error {
		if len(l.waiting) == 0 {
			l.serving = 0
			return nil
		}
		n = l.waiting[0]
		l.waiting = l.waiting[1:]
		l.serving = n
		return nil
	})
	return n, err
}

// Complete marks number as done in today's queue, whether it was being served or still
// waiting (a patient who left).
func (a *Allocator) Complete(ctx context.Context, department domain.Department, number int) error {
	return a.withLedger(ctx, ledgerKey{department, a.Today()}, func(l *ledger) error {
		if l.serving == number {
			l.serving = 0
			return nil
		}
		if i := slices.Index(l.waiting, number); i >= 0 {
			l.waiting = slices.Delete(l.waiting, i, i+1)
			return nil
		}
		return fmt.Errorf("ticket %d is not active in queue %s: %w", number, department, domain.ErrTicketNotFound)
	})
}
