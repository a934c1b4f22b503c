// internal/repository/memory.go
//
// In-memory repository implementations used by tests and as a local
// fallback when no database is configured. Every method copies entities on
// the way in and out so callers never share state with the store.
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finlead/membership-backend/internal/types"
)

// ============================================
// In-Memory Member Repository
// ============================================

type inMemoryMemberRepository struct {
	mu      sync.Mutex
	members map[string]*Member
	tokens  map[string]*RefreshToken
	// rowLocks serializes UpdateLocked per member, standing in for
	// SELECT ... FOR UPDATE.
	rowLocks map[string]*sync.Mutex
}

func newInMemoryMemberRepository() *inMemoryMemberRepository {
	return &inMemoryMemberRepository{
		members:  make(map[string]*Member),
		tokens:   make(map[string]*RefreshToken),
		rowLocks: make(map[string]*sync.Mutex),
	}
}

func copyMember(m *Member) *Member {
	c := *m
	return &c
}

func (r *inMemoryMemberRepository) Create(ctx context.Context, member *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	if member.Role == "" {
		member.Role = types.RoleMember
	}
	if member.Status == "" {
		member.Status = types.StatusActive
	}
	now := time.Now()
	if member.JoinedAt.IsZero() {
		member.JoinedAt = now
	}
	if member.StatusChangedAt.IsZero() {
		member.StatusChangedAt = now
	}
	member.CreatedAt = now
	member.UpdatedAt = now
	r.members[member.ID] = copyMember(member)
	return nil
}

func (r *inMemoryMemberRepository) FindByID(ctx context.Context, id string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[id]
	if !ok {
		return nil, nil
	}
	return copyMember(m), nil
}

func (r *inMemoryMemberRepository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if strings.EqualFold(m.Email, email) {
			return copyMember(m), nil
		}
	}
	return nil, nil
}

func (r *inMemoryMemberRepository) FindAll(ctx context.Context) ([]*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var members []*Member
	for _, m := range r.members {
		if !m.Retired {
			members = append(members, copyMember(m))
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members, nil
}

func (r *inMemoryMemberRepository) Update(ctx context.Context, member *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[member.ID]; !ok {
		return fmt.Errorf("member %s not found", member.ID)
	}
	member.UpdatedAt = time.Now()
	r.members[member.ID] = copyMember(member)
	return nil
}

func (r *inMemoryMemberRepository) rowLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.rowLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.rowLocks[id] = lock
	}
	return lock
}

func (r *inMemoryMemberRepository) UpdateLocked(ctx context.Context, id string, fn func(*Member) error) (*Member, error) {
	lock := r.rowLock(id)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	stored, ok := r.members[id]
	if !ok {
		r.mu.Unlock()
		return nil, nil
	}
	working := copyMember(stored)
	r.mu.Unlock()

	if err := fn(working); err != nil {
		return nil, err
	}

	r.mu.Lock()
	working.UpdatedAt = time.Now()
	r.members[id] = copyMember(working)
	r.mu.Unlock()
	return working, nil
}

func (r *inMemoryMemberRepository) FindSuspendedDue(ctx context.Context, now time.Time) ([]*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*Member
	for _, m := range r.members {
		if m.Status == types.StatusSuspended && m.SuspensionEnd != nil && !m.SuspensionEnd.After(now) {
			due = append(due, copyMember(m))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].SuspensionEnd.Before(*due[j].SuspensionEnd)
	})
	return due, nil
}

func (r *inMemoryMemberRepository) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.CreatedAt = time.Now()
	c := *token
	r.tokens[token.Token] = &c
	return nil
}

func (r *inMemoryMemberRepository) FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, nil
	}
	c := *rt
	return &c, nil
}

func (r *inMemoryMemberRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *inMemoryMemberRepository) DeleteMemberRefreshTokens(ctx context.Context, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, rt := range r.tokens {
		if rt.MemberID == memberID {
			delete(r.tokens, k)
		}
	}
	return nil
}

// ============================================
// In-Memory Status History Repository
// ============================================

type inMemoryStatusHistoryRepository struct {
	mu      sync.Mutex
	changes []*StatusChange
}

func newInMemoryStatusHistoryRepository() *inMemoryStatusHistoryRepository {
	return &inMemoryStatusHistoryRepository{}
}

func (r *inMemoryStatusHistoryRepository) Append(ctx context.Context, change *StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	change.CreatedAt = time.Now()
	c := *change
	r.changes = append(r.changes, &c)
	return nil
}

func (r *inMemoryStatusHistoryRepository) FindByMemberID(ctx context.Context, memberID string) ([]*StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*StatusChange
	for i := len(r.changes) - 1; i >= 0; i-- {
		if r.changes[i].MemberID == memberID {
			c := *r.changes[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

// ============================================
// In-Memory Role History Repository
// ============================================

type inMemoryRoleHistoryRepository struct {
	mu      sync.Mutex
	changes []*RoleChange
}

func newInMemoryRoleHistoryRepository() *inMemoryRoleHistoryRepository {
	return &inMemoryRoleHistoryRepository{}
}

func (r *inMemoryRoleHistoryRepository) Append(ctx context.Context, change *RoleChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	change.CreatedAt = time.Now()
	c := *change
	r.changes = append(r.changes, &c)
	return nil
}

func (r *inMemoryRoleHistoryRepository) FindByMemberID(ctx context.Context, memberID string) ([]*RoleChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*RoleChange
	for i := len(r.changes) - 1; i >= 0; i-- {
		if r.changes[i].MemberID == memberID {
			c := *r.changes[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *inMemoryRoleHistoryRepository) CountPromotions(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, c := range r.changes {
		if c.ToRole.Above(c.FromRole) {
			count++
		}
	}
	return count, nil
}

// ============================================
// In-Memory Promotion Repository
// ============================================

type inMemoryPromotionRepository struct {
	mu   sync.Mutex
	apps map[string]*PromotionApplication
}

func newInMemoryPromotionRepository() *inMemoryPromotionRepository {
	return &inMemoryPromotionRepository{apps: make(map[string]*PromotionApplication)}
}

func copyApplication(a *PromotionApplication) *PromotionApplication {
	c := *a
	return &c
}

func (r *inMemoryPromotionRepository) CreateIfNonePending(ctx context.Context, app *PromotionApplication) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.apps {
		if a.MemberID == app.MemberID && a.Status == types.ApplicationPending {
			return false, nil
		}
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	app.Status = types.ApplicationPending
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now()
	}
	r.apps[app.ID] = copyApplication(app)
	return true, nil
}

func (r *inMemoryPromotionRepository) FindByID(ctx context.Context, id string) (*PromotionApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.apps[id]
	if !ok {
		return nil, nil
	}
	return copyApplication(a), nil
}

func (r *inMemoryPromotionRepository) FindPendingByMemberID(ctx context.Context, memberID string) (*PromotionApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.apps {
		if a.MemberID == memberID && a.Status == types.ApplicationPending {
			return copyApplication(a), nil
		}
	}
	return nil, nil
}

func (r *inMemoryPromotionRepository) FindByStatus(ctx context.Context, status types.ApplicationStatus) ([]*PromotionApplication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*PromotionApplication
	for _, a := range r.apps {
		if a.Status == status {
			out = append(out, copyApplication(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out, nil
}

func (r *inMemoryPromotionRepository) Update(ctx context.Context, app *PromotionApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[app.ID]; !ok {
		return fmt.Errorf("application %s not found", app.ID)
	}
	r.apps[app.ID] = copyApplication(app)
	return nil
}

func (r *inMemoryPromotionRepository) DeletePending(ctx context.Context, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.apps {
		if a.MemberID == memberID && a.Status == types.ApplicationPending {
			delete(r.apps, id)
		}
	}
	return nil
}

func (r *inMemoryPromotionRepository) CountApproved(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, a := range r.apps {
		if a.Status == types.ApplicationApproved {
			count++
		}
	}
	return count, nil
}

// ============================================
// In-Memory Attendance Repository
// ============================================

type inMemoryAttendanceRepository struct {
	mu   sync.Mutex
	atts map[string]*MeetingAttendance
}

func newInMemoryAttendanceRepository() *inMemoryAttendanceRepository {
	return &inMemoryAttendanceRepository{atts: make(map[string]*MeetingAttendance)}
}

func copyAttendance(a *MeetingAttendance) *MeetingAttendance {
	c := *a
	return &c
}

func (r *inMemoryAttendanceRepository) Upsert(ctx context.Context, att *MeetingAttendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if att.Intent == "" {
		att.Intent = types.IntentUndecided
	}
	now := time.Now()
	for _, a := range r.atts {
		if a.MemberID == att.MemberID && a.Cycle == att.Cycle {
			a.Intent = att.Intent
			a.Completed = att.Completed
			a.CompletedVia = att.CompletedVia
			a.UpdatedAt = now
			*att = *a
			return nil
		}
	}
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	att.CreatedAt = now
	att.UpdatedAt = now
	r.atts[att.ID] = copyAttendance(att)
	return nil
}

func (r *inMemoryAttendanceRepository) FindByMemberCycle(ctx context.Context, memberID, cycle string) (*MeetingAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.atts {
		if a.MemberID == memberID && a.Cycle == cycle {
			return copyAttendance(a), nil
		}
	}
	return nil, nil
}

func (r *inMemoryAttendanceRepository) FindByCycleApproval(ctx context.Context, cycle string, approval types.FinalApproval) ([]*MeetingAttendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*MeetingAttendance
	for _, a := range r.atts {
		if a.Cycle == cycle && a.Approval == approval && !a.Archived {
			out = append(out, copyAttendance(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (r *inMemoryAttendanceRepository) Update(ctx context.Context, att *MeetingAttendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.atts[att.ID]; !ok {
		return fmt.Errorf("attendance %s not found", att.ID)
	}
	att.UpdatedAt = time.Now()
	r.atts[att.ID] = copyAttendance(att)
	return nil
}

func (r *inMemoryAttendanceRepository) Archive(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.atts[id]
	if !ok {
		return fmt.Errorf("attendance %s not found", id)
	}
	a.Archived = true
	a.UpdatedAt = time.Now()
	return nil
}

// ============================================
// In-Memory Compensation Repository
// ============================================

type inMemoryCompensationRepository struct {
	mu    sync.Mutex
	comps map[string]*Compensation
}

func newInMemoryCompensationRepository() *inMemoryCompensationRepository {
	return &inMemoryCompensationRepository{comps: make(map[string]*Compensation)}
}

func copyCompensation(c *Compensation) *Compensation {
	cp := *c
	return &cp
}

func (r *inMemoryCompensationRepository) FindByID(ctx context.Context, id string) (*Compensation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comps[id]
	if !ok {
		return nil, nil
	}
	return copyCompensation(c), nil
}

func (r *inMemoryCompensationRepository) FindByMemberMonth(ctx context.Context, memberID, month string) (*Compensation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.comps {
		if c.MemberID == memberID && c.Month == month {
			return copyCompensation(c), nil
		}
	}
	return nil, nil
}

func (r *inMemoryCompensationRepository) FindByMemberID(ctx context.Context, memberID string) ([]*Compensation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Compensation
	for _, c := range r.comps {
		if c.MemberID == memberID {
			out = append(out, copyCompensation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	return out, nil
}

func (r *inMemoryCompensationRepository) Upsert(ctx context.Context, comp *Compensation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, c := range r.comps {
		if c.MemberID == comp.MemberID && c.Month == comp.Month {
			if c.Locked {
				return fmt.Errorf("compensation %s/%s is locked", comp.MemberID, comp.Month)
			}
			c.ReferralReward = comp.ReferralReward
			c.ContractReward = comp.ContractReward
			c.Bonus = comp.Bonus
			c.Deduction = comp.Deduction
			c.UpdatedAt = now
			*comp = *c
			return nil
		}
	}
	if comp.ID == "" {
		comp.ID = uuid.NewString()
	}
	comp.CreatedAt = now
	comp.UpdatedAt = now
	r.comps[comp.ID] = copyCompensation(comp)
	return nil
}

func (r *inMemoryCompensationRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comps[id]
	if !ok {
		return fmt.Errorf("compensation %s not found", id)
	}
	c.Locked = locked
	c.UpdatedAt = time.Now()
	return nil
}

func (r *inMemoryCompensationRepository) SumTotals(ctx context.Context, memberID, fromMonth, toMonth string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := decimal.Zero
	for _, c := range r.comps {
		if c.MemberID == memberID && c.Month >= fromMonth && c.Month <= toMonth {
			total = total.Add(c.Total())
		}
	}
	return total, nil
}

// ============================================
// In-Memory Activity Repository
// ============================================

type inMemoryActivityRepository struct {
	mu        sync.Mutex
	sales     []*SalesRecord
	referrals []*Referral
}

func newInMemoryActivityRepository() *inMemoryActivityRepository {
	return &inMemoryActivityRepository{}
}

func (r *inMemoryActivityRepository) AddSale(ctx context.Context, sale *SalesRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	if sale.OccurredAt.IsZero() {
		sale.OccurredAt = time.Now()
	}
	c := *sale
	r.sales = append(r.sales, &c)
	return nil
}

func (r *inMemoryActivityRepository) AddReferral(ctx context.Context, ref *Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ref.ID == "" {
		ref.ID = uuid.NewString()
	}
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now()
	}
	c := *ref
	r.referrals = append(r.referrals, &c)
	return nil
}

func (r *inMemoryActivityRepository) SumSalesVolume(ctx context.Context, memberID string, from, to time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := decimal.Zero
	for _, s := range r.sales {
		if s.MemberID == memberID && !s.OccurredAt.Before(from) && s.OccurredAt.Before(to) {
			total = total.Add(s.Amount)
		}
	}
	return total, nil
}

func (r *inMemoryActivityRepository) SumInsuredCount(ctx context.Context, memberID string, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, s := range r.sales {
		if s.MemberID == memberID && !s.OccurredAt.Before(from) && s.OccurredAt.Before(to) {
			count += s.InsuredCount
		}
	}
	return count, nil
}

func (r *inMemoryActivityRepository) CountApprovedReferrals(ctx context.Context, memberID string, target types.Role, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, ref := range r.referrals {
		if ref.MemberID == memberID && ref.TargetRole == target && ref.Approved &&
			!ref.CreatedAt.Before(from) && ref.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

// ============================================
// In-Memory Mentoring Repository
// ============================================

type inMemoryMentoringRepository struct {
	mu   sync.Mutex
	reqs map[string]*MentoringRequest
}

func newInMemoryMentoringRepository() *inMemoryMentoringRepository {
	return &inMemoryMentoringRepository{reqs: make(map[string]*MentoringRequest)}
}

func (r *inMemoryMentoringRepository) Create(ctx context.Context, req *MentoringRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Open = true
	req.CreatedAt = time.Now()
	c := *req
	r.reqs[req.ID] = &c
	return nil
}

func (r *inMemoryMentoringRepository) FindOpenByMemberID(ctx context.Context, memberID string) ([]*MentoringRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*MentoringRequest
	for _, req := range r.reqs {
		if req.MemberID == memberID && req.Open {
			c := *req
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *inMemoryMentoringRepository) CloseAllForMember(ctx context.Context, memberID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	closed := 0
	for _, req := range r.reqs {
		if req.MemberID == memberID && req.Open {
			req.Open = false
			closed++
		}
	}
	return closed, nil
}

// ============================================
// In-Memory Notification Repository
// ============================================

type inMemoryNotificationRepository struct {
	mu            sync.Mutex
	notifications []*Notification
}

func newInMemoryNotificationRepository() *inMemoryNotificationRepository {
	return &inMemoryNotificationRepository{}
}

func (r *inMemoryNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	notification.CreatedAt = time.Now()
	c := *notification
	r.notifications = append(r.notifications, &c)
	return nil
}

func (r *inMemoryNotificationRepository) FindByMemberID(ctx context.Context, memberID string, unreadOnly bool) ([]*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		n := r.notifications[i]
		if n.MemberID != memberID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		c := *n
		out = append(out, &c)
	}
	return out, nil
}

func (r *inMemoryNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %s not found", id)
}

func (r *inMemoryNotificationRepository) MarkAllAsRead(ctx context.Context, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.MemberID == memberID {
			n.Read = true
		}
	}
	return nil
}

func (r *inMemoryNotificationRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.notifications {
		if n.ID == id {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return nil
}
