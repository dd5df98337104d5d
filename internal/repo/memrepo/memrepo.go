// Package memrepo keeps every repository in process memory. Transactions are
// serialized by a single lock and roll back by restoring a snapshot, which
// gives the same isolation the row locks give in postgres.
package memrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/internal/pg"
	"github.com/GlebRadaev/spinearn/internal/repo"
)

type txKey struct{}

type state struct {
	seq         int64
	users       map[int64]domain.User
	grants      []domain.RewardGrant
	txs         []domain.WalletTx
	spins       []domain.SpinSession
	withdrawals map[int64]domain.WithdrawalRequest
	referrals   []domain.Referral
	configs     map[string]domain.EconomyConfig
	history     []domain.EconomyConfig
}

func newState() state {
	return state{
		users:       map[int64]domain.User{},
		withdrawals: map[int64]domain.WithdrawalRequest{},
		configs:     map[string]domain.EconomyConfig{},
	}
}

func (s state) clone() state {
	c := state{
		seq:         s.seq,
		users:       make(map[int64]domain.User, len(s.users)),
		grants:      append([]domain.RewardGrant(nil), s.grants...),
		txs:         append([]domain.WalletTx(nil), s.txs...),
		spins:       append([]domain.SpinSession(nil), s.spins...),
		withdrawals: make(map[int64]domain.WithdrawalRequest, len(s.withdrawals)),
		referrals:   append([]domain.Referral(nil), s.referrals...),
		configs:     make(map[string]domain.EconomyConfig, len(s.configs)),
		history:     append([]domain.EconomyConfig(nil), s.history...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	for k, v := range s.configs {
		c.configs[k] = v
	}
	return c
}

// Store implements pg.TXManager over the in-memory tables.
type Store struct {
	mu   sync.Mutex
	data state
	now  func() time.Time
}

var _ pg.TXManager = (*Store)(nil)

func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

// SetClock replaces the clock used for created_at and updated_at values.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// New returns repositories backed by a fresh store.
func New() (*repo.Repositories, *Store) {
	s := NewStore()
	return s.Repositories(), s
}

func (s *Store) Repositories() *repo.Repositories {
	return &repo.Repositories{
		UserRepo:     &Users{s: s},
		LedgerRepo:   &Ledger{s: s},
		SpinRepo:     &Spins{s: s},
		Withdrawal:   &Withdrawals{s: s},
		ConfigRepo:   &Config{s: s},
		ReferralRepo: &Referrals{s: s},
		StatsRepo:    &Stats{s: s},
	}
}

// Begin runs fn holding the store lock. Nested calls join the outer one and
// any error restores the state seen when the outermost call started.
func (s *Store) Begin(ctx context.Context, fn pg.TransactionalFn) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) enter(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextID() int64 {
	s.data.seq++
	return s.data.seq
}

func paginate[T any](items []T, page domain.PageRequest) []T {
	page = page.Normalize()
	from := page.Offset()
	if from >= len(items) {
		return []T{}
	}
	to := min(from+page.Limit, len(items))
	return append([]T(nil), items[from:to]...)
}

type Users struct{ s *Store }

var _ repo.UserRepo = (*Users)(nil)

func (r *Users) find(ctx context.Context, match func(domain.User) bool) (*domain.User, error) {
	defer r.s.enter(ctx)()
	for _, u := range r.s.data.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Email == email })
}

func (r *Users) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ID == id })
}

func (r *Users) FindByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ReferralCode == code })
}

func (r *Users) GetForUpdate(ctx context.Context, id int64) (*domain.User, error) {
	return r.FindByID(ctx, id)
}

func (r *Users) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	defer r.s.enter(ctx)()
	for _, u := range r.s.data.users {
		if u.Email == user.Email || u.ReferralCode == user.ReferralCode {
			return nil, fmt.Errorf("%w: user already exists", domain.ErrDuplicate)
		}
	}
	user.ID = r.s.nextID()
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	r.s.data.users[user.ID] = *user
	return user, nil
}

func (r *Users) update(ctx context.Context, id int64, fn func(u *domain.User) error) error {
	defer r.s.enter(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = r.s.now()
	r.s.data.users[id] = u
	return nil
}

func (r *Users) UpdateCoins(ctx context.Context, id int64, coins int64) error {
	return r.update(ctx, id, func(u *domain.User) error {
		if coins < 0 {
			return fmt.Errorf("users_coins_check: coins %d", coins)
		}
		u.Coins = coins
		return nil
	})
}

func (r *Users) UpdateStreak(ctx context.Context, id int64, streak domain.Streak) error {
	return r.update(ctx, id, func(u *domain.User) error {
		u.Streak = streak
		return nil
	})
}

func (r *Users) SetReferredBy(ctx context.Context, id int64, referrerID int64) error {
	return r.update(ctx, id, func(u *domain.User) error {
		if u.ReferredBy != nil {
			return fmt.Errorf("%w: referral already applied", domain.ErrDuplicate)
		}
		u.ReferredBy = &referrerID
		return nil
	})
}

func (r *Users) SetFlags(ctx context.Context, id int64, blocked bool, shadowBanned bool) error {
	return r.update(ctx, id, func(u *domain.User) error {
		u.Blocked = blocked
		u.ShadowBanned = shadowBanned
		return nil
	})
}

func (r *Users) List(ctx context.Context, search string, page domain.PageRequest) ([]domain.User, int, error) {
	defer r.s.enter(ctx)()
	search = strings.ToLower(search)
	var users []domain.User
	for _, u := range r.s.data.users {
		if search == "" || strings.Contains(strings.ToLower(u.Email), search) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return paginate(users, page), len(users), nil
}

type Ledger struct{ s *Store }

var _ repo.LedgerRepo = (*Ledger)(nil)

func (r *Ledger) CreateGrant(ctx context.Context, g *domain.RewardGrant) (bool, error) {
	defer r.s.enter(ctx)()
	if g.IdempotencyKey != nil {
		for _, existing := range r.s.data.grants {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *g.IdempotencyKey {
				return false, nil
			}
		}
	}
	g.ID = r.s.nextID()
	g.CreatedAt = r.s.now()
	r.s.data.grants = append(r.s.data.grants, *g)
	return true, nil
}

func (r *Ledger) FindGrantByIdempotencyKey(ctx context.Context, key string) (*domain.RewardGrant, error) {
	defer r.s.enter(ctx)()
	for _, g := range r.s.data.grants {
		if g.IdempotencyKey != nil && *g.IdempotencyKey == key {
			return &g, nil
		}
	}
	return nil, nil
}

func (r *Ledger) CreateTx(ctx context.Context, tx *domain.WalletTx) error {
	defer r.s.enter(ctx)()
	tx.ID = r.s.nextID()
	tx.CreatedAt = r.s.now()
	r.s.data.txs = append(r.s.data.txs, *tx)
	return nil
}

func (r *Ledger) FindTxByReference(ctx context.Context, refType string, refID int64) (*domain.WalletTx, error) {
	defer r.s.enter(ctx)()
	for i := len(r.s.data.txs) - 1; i >= 0; i-- {
		tx := r.s.data.txs[i]
		if tx.ReferenceType != nil && *tx.ReferenceType == refType && tx.ReferenceID != nil && *tx.ReferenceID == refID {
			return &tx, nil
		}
	}
	return nil, nil
}

func (r *Ledger) ListTxByUser(ctx context.Context, userID int64, page domain.PageRequest) ([]domain.WalletTx, int, error) {
	defer r.s.enter(ctx)()
	var txs []domain.WalletTx
	for i := len(r.s.data.txs) - 1; i >= 0; i-- {
		if r.s.data.txs[i].UserID == userID {
			txs = append(txs, r.s.data.txs[i])
		}
	}
	return paginate(txs, page), len(txs), nil
}

func (r *Ledger) CoinsEarnedSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	defer r.s.enter(ctx)()
	var sum int64
	for _, g := range r.s.data.grants {
		if g.UserID == userID && !g.CreatedAt.Before(since) && g.Reason != domain.ReasonAdmin {
			sum += g.Amount
		}
	}
	return sum, nil
}

func (r *Ledger) CountGrantsSince(ctx context.Context, userID int64, reason domain.GrantReason, since time.Time) (int, error) {
	defer r.s.enter(ctx)()
	var n int
	for _, g := range r.s.data.grants {
		if g.UserID == userID && g.Reason == reason && !g.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *Ledger) ledgerBalance(userID int64) int64 {
	var sum int64
	for _, tx := range r.s.data.txs {
		if tx.UserID != userID {
			continue
		}
		if tx.Direction == domain.Credit {
			sum += tx.Amount
		} else {
			sum -= tx.Amount
		}
	}
	return sum
}

func (r *Ledger) LedgerBalance(ctx context.Context, userID int64) (int64, error) {
	defer r.s.enter(ctx)()
	return r.ledgerBalance(userID), nil
}

func (r *Ledger) FindDrift(ctx context.Context, limit int) ([]domain.LedgerDrift, error) {
	defer r.s.enter(ctx)()
	drifts := []domain.LedgerDrift{}
	for _, u := range r.s.data.users {
		if sum := r.ledgerBalance(u.ID); sum != u.Coins {
			drifts = append(drifts, domain.LedgerDrift{UserID: u.ID, Coins: u.Coins, LedgerAmount: sum})
		}
	}
	sort.Slice(drifts, func(i, j int) bool { return drifts[i].UserID < drifts[j].UserID })
	if limit > 0 && len(drifts) > limit {
		drifts = drifts[:limit]
	}
	return drifts, nil
}

type Spins struct{ s *Store }

func (r *Spins) Create(ctx context.Context, session *domain.SpinSession) (bool, error) {
	defer r.s.enter(ctx)()
	for _, existing := range r.s.data.spins {
		if existing.Signature == session.Signature {
			return false, nil
		}
	}
	session.ID = r.s.nextID()
	session.CreatedAt = r.s.now()
	r.s.data.spins = append(r.s.data.spins, *session)
	return true, nil
}

func (r *Spins) FindBySignature(ctx context.Context, signature string) (*domain.SpinSession, error) {
	defer r.s.enter(ctx)()
	for _, session := range r.s.data.spins {
		if session.Signature == signature {
			return &session, nil
		}
	}
	return nil, nil
}

func (r *Spins) Stats(ctx context.Context, userID int64, dayStart time.Time) (*domain.SpinStats, error) {
	defer r.s.enter(ctx)()
	stats := &domain.SpinStats{}
	for _, session := range r.s.data.spins {
		if session.UserID != userID {
			continue
		}
		if !session.CreatedAt.Before(dayStart) {
			stats.SpinsToday++
			if session.Method == domain.SpinRewarded {
				stats.RewardedToday++
			}
		}
		if stats.LastSpinAt == nil || session.CreatedAt.After(*stats.LastSpinAt) {
			at := session.CreatedAt
			stats.LastSpinAt = &at
		}
	}
	return stats, nil
}

type Withdrawals struct{ s *Store }

func (r *Withdrawals) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	defer r.s.enter(ctx)()
	w.ID = r.s.nextID()
	w.CreatedAt = r.s.now()
	w.UpdatedAt = w.CreatedAt
	r.s.data.withdrawals[w.ID] = *w
	return nil
}

func (r *Withdrawals) GetForUpdate(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	defer r.s.enter(ctx)()
	w, ok := r.s.data.withdrawals[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *Withdrawals) LastCreatedAt(ctx context.Context, userID int64) (*time.Time, error) {
	defer r.s.enter(ctx)()
	var last *time.Time
	for _, w := range r.s.data.withdrawals {
		if w.UserID == userID && (last == nil || w.CreatedAt.After(*last)) {
			at := w.CreatedAt
			last = &at
		}
	}
	return last, nil
}

func (r *Withdrawals) UpdateStatus(ctx context.Context, id int64, status domain.WithdrawalStatus, notes string, processedBy int64) (*domain.WithdrawalRequest, error) {
	defer r.s.enter(ctx)()
	w, ok := r.s.data.withdrawals[id]
	if !ok {
		return nil, nil
	}
	now := r.s.now()
	w.Status = status
	w.Notes = notes
	w.ProcessedAt = &now
	w.UpdatedAt = now
	w.ProcessedBy = nil
	if processedBy != 0 {
		w.ProcessedBy = &processedBy
	}
	r.s.data.withdrawals[id] = w
	return &w, nil
}

func (r *Withdrawals) sorted(match func(domain.WithdrawalRequest) bool, newestFirst bool) []domain.WithdrawalRequest {
	var list []domain.WithdrawalRequest
	for _, w := range r.s.data.withdrawals {
		if match(w) {
			list = append(list, w)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if newestFirst {
			return list[i].ID > list[j].ID
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func (r *Withdrawals) ListByUser(ctx context.Context, userID int64, page domain.PageRequest) ([]domain.WithdrawalRequest, int, error) {
	defer r.s.enter(ctx)()
	list := r.sorted(func(w domain.WithdrawalRequest) bool { return w.UserID == userID }, true)
	return paginate(list, page), len(list), nil
}

func (r *Withdrawals) ListForAdmin(ctx context.Context, status domain.WithdrawalStatus, page domain.PageRequest) ([]domain.WithdrawalView, int, error) {
	defer r.s.enter(ctx)()
	list := r.sorted(func(w domain.WithdrawalRequest) bool { return status == "" || w.Status == status }, true)
	views := make([]domain.WithdrawalView, len(list))
	for i, w := range list {
		views[i] = domain.WithdrawalView{WithdrawalRequest: w, UserEmail: r.s.data.users[w.UserID].Email}
		if w.ProcessedBy != nil {
			if admin, ok := r.s.data.users[*w.ProcessedBy]; ok {
				views[i].ProcessorEmail = &admin.Email
			}
		}
	}
	return paginate(views, page), len(views), nil
}

func (r *Withdrawals) FindPendingForAutoApproval(ctx context.Context, maxAmount int64, limit int) ([]domain.WithdrawalRequest, error) {
	defer r.s.enter(ctx)()
	list := r.sorted(func(w domain.WithdrawalRequest) bool {
		return w.Status == domain.WithdrawalPending && w.Amount <= maxAmount
	}, false)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type Config struct{ s *Store }

func (r *Config) Get(ctx context.Context, key string) (*domain.EconomyConfig, error) {
	defer r.s.enter(ctx)()
	cfg, ok := r.s.data.configs[key]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (r *Config) Save(ctx context.Context, key string, cfg *domain.EconomyConfig, expectedVersion int64, updatedBy int64) (*domain.EconomyConfig, error) {
	defer r.s.enter(ctx)()
	current, ok := r.s.data.configs[key]
	if ok != (expectedVersion != 0) || (ok && current.Version != expectedVersion) {
		return nil, fmt.Errorf("%w: config version %d is stale", domain.ErrInvalidState, expectedVersion)
	}
	saved := *cfg
	saved.Version = expectedVersion + 1
	saved.UpdatedAt = r.s.now()
	r.s.data.configs[key] = saved
	r.s.data.history = append(r.s.data.history, saved)
	return &saved, nil
}

type Referrals struct{ s *Store }

func (r *Referrals) Create(ctx context.Context, ref *domain.Referral) error {
	defer r.s.enter(ctx)()
	for _, existing := range r.s.data.referrals {
		if existing.InviteeID == ref.InviteeID {
			return fmt.Errorf("%w: user %d already referred", domain.ErrDuplicate, ref.InviteeID)
		}
	}
	ref.ID = r.s.nextID()
	ref.CreatedAt = r.s.now()
	r.s.data.referrals = append(r.s.data.referrals, *ref)
	return nil
}

func (r *Referrals) ListByInviter(ctx context.Context, inviterID int64) ([]domain.ReferralView, error) {
	defer r.s.enter(ctx)()
	var views []domain.ReferralView
	for i := len(r.s.data.referrals) - 1; i >= 0; i-- {
		ref := r.s.data.referrals[i]
		if ref.InviterID == inviterID {
			views = append(views, domain.ReferralView{
				InviteeID:    ref.InviteeID,
				InviteeEmail: r.s.data.users[ref.InviteeID].Email,
				CreatedAt:    ref.CreatedAt,
			})
		}
	}
	return views, nil
}

type Stats struct{ s *Store }

func (r *Stats) Dashboard(ctx context.Context, dayStart time.Time) (*domain.DashboardStats, error) {
	defer r.s.enter(ctx)()
	d := &domain.DashboardStats{TotalUsers: int64(len(r.s.data.users))}
	for _, u := range r.s.data.users {
		d.CoinsInCirculation += u.Coins
	}
	active := map[int64]struct{}{}
	for _, session := range r.s.data.spins {
		if !session.CreatedAt.Before(dayStart) {
			d.SpinsToday++
			active[session.UserID] = struct{}{}
		}
	}
	d.ActiveUsersToday = int64(len(active))
	for _, g := range r.s.data.grants {
		if !g.CreatedAt.Before(dayStart) {
			d.CoinsGrantedToday += g.Amount
		}
	}
	for _, w := range r.s.data.withdrawals {
		if w.Status == domain.WithdrawalPending {
			d.PendingWithdrawals++
			d.PendingAmount += w.Amount
		}
	}
	return d, nil
}
