// internal/repository/pg.go
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finlead/membership-backend/internal/types"
)

// ============================================
// PostgreSQL Member Repository
// ============================================

type pgMemberRepository struct {
	pool *pgxpool.Pool
}

const memberColumns = `
	id, email, password, name, role, range_level, status, status_reason,
	status_changed_at, status_changed_by, subscription_id, joined_at,
	suspension_start, suspension_end, reactivated_at,
	cancel_requested_at, scheduled_cancel_date,
	meeting_completed, survey_completed,
	onboarding_unlocked, compliance_test_passed, guidance_viewed,
	manager_contact_confirmed, payout_account_registered, onboarding_completed,
	retired, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*Member, error) {
	m := &Member{}
	err := row.Scan(
		&m.ID, &m.Email, &m.Password, &m.Name, &m.Role, &m.Range, &m.Status,
		&m.StatusReason, &m.StatusChangedAt, &m.StatusChangedBy,
		&m.SubscriptionID, &m.JoinedAt,
		&m.SuspensionStart, &m.SuspensionEnd, &m.ReactivatedAt,
		&m.CancelRequestedAt, &m.ScheduledCancelDate,
		&m.MeetingCompleted, &m.SurveyCompleted,
		&m.OnboardingUnlocked, &m.ComplianceTestPassed, &m.GuidanceViewed,
		&m.ManagerContactConfirmed, &m.PayoutAccountRegistered, &m.OnboardingCompleted,
		&m.Retired, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *pgMemberRepository) Create(ctx context.Context, member *Member) error {
	query := `
		INSERT INTO members (email, password, name, role, range_level, status,
			status_reason, status_changed_by, subscription_id, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, status_changed_at, created_at, updated_at
	`
	if member.Role == "" {
		member.Role = types.RoleMember
	}
	if member.Status == "" {
		member.Status = types.StatusActive
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	return r.pool.QueryRow(ctx, query,
		member.Email, member.Password, member.Name, member.Role, member.Range,
		member.Status, member.StatusReason, member.StatusChangedBy,
		member.SubscriptionID, member.JoinedAt,
	).Scan(&member.ID, &member.StatusChangedAt, &member.CreatedAt, &member.UpdatedAt)
}

func (r *pgMemberRepository) FindByID(ctx context.Context, id string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	return scanMember(r.pool.QueryRow(ctx, query, id))
}

func (r *pgMemberRepository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE LOWER(email) = LOWER($1)`
	return scanMember(r.pool.QueryRow(ctx, query, email))
}

func (r *pgMemberRepository) FindAll(ctx context.Context) ([]*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE NOT retired ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

const memberUpdateSQL = `
	UPDATE members SET
		email = $2, name = $3, role = $4, range_level = $5, status = $6,
		status_reason = $7, status_changed_at = $8, status_changed_by = $9,
		subscription_id = $10,
		suspension_start = $11, suspension_end = $12, reactivated_at = $13,
		cancel_requested_at = $14, scheduled_cancel_date = $15,
		meeting_completed = $16, survey_completed = $17,
		onboarding_unlocked = $18, compliance_test_passed = $19,
		guidance_viewed = $20, manager_contact_confirmed = $21,
		payout_account_registered = $22, onboarding_completed = $23,
		retired = $24, updated_at = NOW()
	WHERE id = $1`

func memberUpdateArgs(m *Member) []any {
	return []any{
		m.ID, m.Email, m.Name, m.Role, m.Range, m.Status,
		m.StatusReason, m.StatusChangedAt, m.StatusChangedBy,
		m.SubscriptionID,
		m.SuspensionStart, m.SuspensionEnd, m.ReactivatedAt,
		m.CancelRequestedAt, m.ScheduledCancelDate,
		m.MeetingCompleted, m.SurveyCompleted,
		m.OnboardingUnlocked, m.ComplianceTestPassed, m.GuidanceViewed,
		m.ManagerContactConfirmed, m.PayoutAccountRegistered,
		m.OnboardingCompleted, m.Retired,
	}
}

func (r *pgMemberRepository) Update(ctx context.Context, member *Member) error {
	_, err := r.pool.Exec(ctx, memberUpdateSQL, memberUpdateArgs(member)...)
	return err
}

// UpdateLocked serializes concurrent transitions on the same member:
// SELECT ... FOR UPDATE holds the row until fn's result is committed.
func (r *pgMemberRepository) UpdateLocked(ctx context.Context, id string, fn func(*Member) error) (*Member, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1 FOR UPDATE`
	member, err := scanMember(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, nil
	}

	if err := fn(member); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, memberUpdateSQL, memberUpdateArgs(member)...); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return member, nil
}

func (r *pgMemberRepository) FindSuspendedDue(ctx context.Context, now time.Time) ([]*Member, error) {
	query := `SELECT ` + memberColumns + `
		FROM members
		WHERE status = $1 AND suspension_end IS NOT NULL AND suspension_end <= $2
		ORDER BY suspension_end`
	rows, err := r.pool.Query(ctx, query, types.StatusSuspended, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgMemberRepository) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, member_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query, token.Token, token.MemberID, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
}

func (r *pgMemberRepository) FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	query := `
		SELECT id, token, member_id, expires_at, created_at
		FROM refresh_tokens WHERE token = $1
	`
	rt := &RefreshToken{}
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&rt.ID, &rt.Token, &rt.MemberID, &rt.ExpiresAt, &rt.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *pgMemberRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (r *pgMemberRepository) DeleteMemberRefreshTokens(ctx context.Context, memberID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE member_id = $1`, memberID)
	return err
}

// ============================================
// PostgreSQL Status History Repository
// ============================================

type pgStatusHistoryRepository struct {
	pool *pgxpool.Pool
}

func (r *pgStatusHistoryRepository) Append(ctx context.Context, change *StatusChange) error {
	query := `
		INSERT INTO status_changes (member_id, from_status, to_status, reason, actor)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		change.MemberID, change.FromStatus, change.ToStatus, change.Reason, change.Actor,
	).Scan(&change.ID, &change.CreatedAt)
}

func (r *pgStatusHistoryRepository) FindByMemberID(ctx context.Context, memberID string) ([]*StatusChange, error) {
	query := `
		SELECT id, member_id, from_status, to_status, reason, actor, created_at
		FROM status_changes WHERE member_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []*StatusChange
	for rows.Next() {
		c := &StatusChange{}
		if err := rows.Scan(&c.ID, &c.MemberID, &c.FromStatus, &c.ToStatus,
			&c.Reason, &c.Actor, &c.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// ============================================
// PostgreSQL Role History Repository
// ============================================

type pgRoleHistoryRepository struct {
	pool *pgxpool.Pool
}

func (r *pgRoleHistoryRepository) Append(ctx context.Context, change *RoleChange) error {
	query := `
		INSERT INTO role_changes (member_id, from_role, to_role, reason, actor)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		change.MemberID, change.FromRole, change.ToRole, change.Reason, change.Actor,
	).Scan(&change.ID, &change.CreatedAt)
}

func (r *pgRoleHistoryRepository) FindByMemberID(ctx context.Context, memberID string) ([]*RoleChange, error) {
	query := `
		SELECT id, member_id, from_role, to_role, reason, actor, created_at
		FROM role_changes WHERE member_id = $1 ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []*RoleChange
	for rows.Next() {
		c := &RoleChange{}
		if err := rows.Scan(&c.ID, &c.MemberID, &c.FromRole, &c.ToRole,
			&c.Reason, &c.Actor, &c.CreatedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (r *pgRoleHistoryRepository) CountPromotions(ctx context.Context) (int, error) {
	// A promotion is any role change to a higher rank; ranks are small and
	// fixed so the comparison is inlined.
	query := `
		SELECT COUNT(*) FROM role_changes
		WHERE (from_role = 'member' AND to_role IN ('associate', 'manager'))
		   OR (from_role = 'associate' AND to_role = 'manager')
	`
	var count int
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}

// ============================================
// PostgreSQL Promotion Repository
// ============================================

type pgPromotionRepository struct {
	pool *pgxpool.Pool
}

func (r *pgPromotionRepository) CreateIfNonePending(ctx context.Context, app *PromotionApplication) (bool, error) {
	// Insert-if-absent keeps a race from creating duplicates; the partial
	// unique index on (member_id) WHERE status = 'pending' backstops it.
	query := `
		INSERT INTO promotion_applications (member_id, target_role, status, applied_at)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1 FROM promotion_applications
			WHERE member_id = $1 AND status = 'pending'
		)
		RETURNING id
	`
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now()
	}
	err := r.pool.QueryRow(ctx, query,
		app.MemberID, app.TargetRole, types.ApplicationPending, app.AppliedAt,
	).Scan(&app.ID)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	app.Status = types.ApplicationPending
	return true, nil
}

const applicationColumns = `
	id, member_id, target_role, status, applied_at, reviewed_at,
	reviewer_id, review_notes, reject_reason`

func scanApplication(row rowScanner) (*PromotionApplication, error) {
	a := &PromotionApplication{}
	err := row.Scan(
		&a.ID, &a.MemberID, &a.TargetRole, &a.Status, &a.AppliedAt,
		&a.ReviewedAt, &a.ReviewerID, &a.ReviewNotes, &a.RejectReason,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *pgPromotionRepository) FindByID(ctx context.Context, id string) (*PromotionApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM promotion_applications WHERE id = $1`
	return scanApplication(r.pool.QueryRow(ctx, query, id))
}

func (r *pgPromotionRepository) FindPendingByMemberID(ctx context.Context, memberID string) (*PromotionApplication, error) {
	query := `SELECT ` + applicationColumns + `
		FROM promotion_applications WHERE member_id = $1 AND status = 'pending'`
	return scanApplication(r.pool.QueryRow(ctx, query, memberID))
}

func (r *pgPromotionRepository) FindByStatus(ctx context.Context, status types.ApplicationStatus) ([]*PromotionApplication, error) {
	query := `SELECT ` + applicationColumns + `
		FROM promotion_applications WHERE status = $1 ORDER BY applied_at`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []*PromotionApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

func (r *pgPromotionRepository) Update(ctx context.Context, app *PromotionApplication) error {
	query := `
		UPDATE promotion_applications SET
			status = $2, reviewed_at = $3, reviewer_id = $4,
			review_notes = $5, reject_reason = $6
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, app.ID,
		app.Status, app.ReviewedAt, app.ReviewerID, app.ReviewNotes, app.RejectReason)
	return err
}

func (r *pgPromotionRepository) DeletePending(ctx context.Context, memberID string) error {
	query := `DELETE FROM promotion_applications WHERE member_id = $1 AND status = 'pending'`
	_, err := r.pool.Exec(ctx, query, memberID)
	return err
}

func (r *pgPromotionRepository) CountApproved(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM promotion_applications WHERE status = 'approved'`,
	).Scan(&count)
	return count, err
}

// ============================================
// PostgreSQL Attendance Repository
// ============================================

type pgAttendanceRepository struct {
	pool *pgxpool.Pool
}

func (r *pgAttendanceRepository) Upsert(ctx context.Context, att *MeetingAttendance) error {
	query := `
		INSERT INTO meeting_attendances
			(member_id, cycle, intent, completed, completed_via)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (member_id, cycle) DO UPDATE SET
			intent = EXCLUDED.intent,
			completed = EXCLUDED.completed,
			completed_via = EXCLUDED.completed_via,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	if att.Intent == "" {
		att.Intent = types.IntentUndecided
	}
	return r.pool.QueryRow(ctx, query,
		att.MemberID, att.Cycle, att.Intent, att.Completed, att.CompletedVia,
	).Scan(&att.ID, &att.CreatedAt, &att.UpdatedAt)
}

const attendanceColumns = `
	id, member_id, cycle, intent, completed, completed_via,
	approval, finalized_by, finalized_at, archived, created_at, updated_at`

func scanAttendance(row rowScanner) (*MeetingAttendance, error) {
	a := &MeetingAttendance{}
	err := row.Scan(
		&a.ID, &a.MemberID, &a.Cycle, &a.Intent, &a.Completed, &a.CompletedVia,
		&a.Approval, &a.FinalizedBy, &a.FinalizedAt, &a.Archived,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *pgAttendanceRepository) FindByMemberCycle(ctx context.Context, memberID, cycle string) (*MeetingAttendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM meeting_attendances WHERE member_id = $1 AND cycle = $2`
	return scanAttendance(r.pool.QueryRow(ctx, query, memberID, cycle))
}

func (r *pgAttendanceRepository) FindByCycleApproval(ctx context.Context, cycle string, approval types.FinalApproval) ([]*MeetingAttendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM meeting_attendances
		WHERE cycle = $1 AND approval = $2 AND NOT archived
		ORDER BY member_id`
	rows, err := r.pool.Query(ctx, query, cycle, approval)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []*MeetingAttendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

func (r *pgAttendanceRepository) Update(ctx context.Context, att *MeetingAttendance) error {
	query := `
		UPDATE meeting_attendances SET
			intent = $2, completed = $3, completed_via = $4, approval = $5,
			finalized_by = $6, finalized_at = $7, archived = $8, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, att.ID,
		att.Intent, att.Completed, att.CompletedVia, att.Approval,
		att.FinalizedBy, att.FinalizedAt, att.Archived)
	return err
}

func (r *pgAttendanceRepository) Archive(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meeting_attendances SET archived = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// ============================================
// PostgreSQL Compensation Repository
// ============================================

type pgCompensationRepository struct {
	pool *pgxpool.Pool
}

const compensationColumns = `
	id, member_id, month, referral_reward, contract_reward, bonus, deduction,
	locked, created_at, updated_at`

func scanCompensation(row rowScanner) (*Compensation, error) {
	c := &Compensation{}
	err := row.Scan(
		&c.ID, &c.MemberID, &c.Month, &c.ReferralReward, &c.ContractReward,
		&c.Bonus, &c.Deduction, &c.Locked, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *pgCompensationRepository) FindByID(ctx context.Context, id string) (*Compensation, error) {
	query := `SELECT ` + compensationColumns + ` FROM compensations WHERE id = $1`
	return scanCompensation(r.pool.QueryRow(ctx, query, id))
}

func (r *pgCompensationRepository) FindByMemberMonth(ctx context.Context, memberID, month string) (*Compensation, error) {
	query := `SELECT ` + compensationColumns + `
		FROM compensations WHERE member_id = $1 AND month = $2`
	return scanCompensation(r.pool.QueryRow(ctx, query, memberID, month))
}

func (r *pgCompensationRepository) FindByMemberID(ctx context.Context, memberID string) ([]*Compensation, error) {
	query := `SELECT ` + compensationColumns + `
		FROM compensations WHERE member_id = $1 ORDER BY month DESC`
	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comps []*Compensation
	for rows.Next() {
		c, err := scanCompensation(rows)
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, rows.Err()
}

func (r *pgCompensationRepository) Upsert(ctx context.Context, comp *Compensation) error {
	query := `
		INSERT INTO compensations
			(member_id, month, referral_reward, contract_reward, bonus, deduction)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (member_id, month) DO UPDATE SET
			referral_reward = EXCLUDED.referral_reward,
			contract_reward = EXCLUDED.contract_reward,
			bonus = EXCLUDED.bonus,
			deduction = EXCLUDED.deduction,
			updated_at = NOW()
		WHERE NOT compensations.locked
		RETURNING id, locked, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		comp.MemberID, comp.Month, comp.ReferralReward, comp.ContractReward,
		comp.Bonus, comp.Deduction,
	).Scan(&comp.ID, &comp.Locked, &comp.CreatedAt, &comp.UpdatedAt)
	if err == pgx.ErrNoRows {
		// Row exists but is locked; the conditional update touched nothing.
		return fmt.Errorf("compensation %s/%s is locked", comp.MemberID, comp.Month)
	}
	return err
}

func (r *pgCompensationRepository) SetLocked(ctx context.Context, id string, locked bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE compensations SET locked = $2, updated_at = NOW() WHERE id = $1`, id, locked)
	return err
}

func (r *pgCompensationRepository) SumTotals(ctx context.Context, memberID, fromMonth, toMonth string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(referral_reward + contract_reward + bonus - deduction), 0)
		FROM compensations
		WHERE member_id = $1 AND month >= $2 AND month <= $3
	`
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, query, memberID, fromMonth, toMonth).Scan(&total)
	return total, err
}

// ============================================
// PostgreSQL Activity Repository
// ============================================

type pgActivityRepository struct {
	pool *pgxpool.Pool
}

func (r *pgActivityRepository) AddSale(ctx context.Context, sale *SalesRecord) error {
	query := `
		INSERT INTO sales_records (member_id, amount, insured_count, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if sale.OccurredAt.IsZero() {
		sale.OccurredAt = time.Now()
	}
	return r.pool.QueryRow(ctx, query,
		sale.MemberID, sale.Amount, sale.InsuredCount, sale.OccurredAt,
	).Scan(&sale.ID)
}

func (r *pgActivityRepository) AddReferral(ctx context.Context, ref *Referral) error {
	query := `
		INSERT INTO referrals (member_id, target_role, approved)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		ref.MemberID, ref.TargetRole, ref.Approved,
	).Scan(&ref.ID, &ref.CreatedAt)
}

func (r *pgActivityRepository) SumSalesVolume(ctx context.Context, memberID string, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) FROM sales_records
		WHERE member_id = $1 AND occurred_at >= $2 AND occurred_at < $3
	`
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, query, memberID, from, to).Scan(&total)
	return total, err
}

func (r *pgActivityRepository) SumInsuredCount(ctx context.Context, memberID string, from, to time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(insured_count), 0) FROM sales_records
		WHERE member_id = $1 AND occurred_at >= $2 AND occurred_at < $3
	`
	var count int
	err := r.pool.QueryRow(ctx, query, memberID, from, to).Scan(&count)
	return count, err
}

func (r *pgActivityRepository) CountApprovedReferrals(ctx context.Context, memberID string, target types.Role, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM referrals
		WHERE member_id = $1 AND target_role = $2 AND approved
		  AND created_at >= $3 AND created_at < $4
	`
	var count int
	err := r.pool.QueryRow(ctx, query, memberID, target, from, to).Scan(&count)
	return count, err
}

// ============================================
// PostgreSQL Mentoring Repository
// ============================================

type pgMentoringRepository struct {
	pool *pgxpool.Pool
}

func (r *pgMentoringRepository) Create(ctx context.Context, req *MentoringRequest) error {
	query := `
		INSERT INTO mentoring_requests (member_id, topic, open)
		VALUES ($1, $2, TRUE)
		RETURNING id, created_at
	`
	req.Open = true
	return r.pool.QueryRow(ctx, query, req.MemberID, req.Topic).
		Scan(&req.ID, &req.CreatedAt)
}

func (r *pgMentoringRepository) FindOpenByMemberID(ctx context.Context, memberID string) ([]*MentoringRequest, error) {
	query := `
		SELECT id, member_id, topic, open, created_at
		FROM mentoring_requests WHERE member_id = $1 AND open
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []*MentoringRequest
	for rows.Next() {
		m := &MentoringRequest{}
		if err := rows.Scan(&m.ID, &m.MemberID, &m.Topic, &m.Open, &m.CreatedAt); err != nil {
			return nil, err
		}
		reqs = append(reqs, m)
	}
	return reqs, rows.Err()
}

func (r *pgMentoringRepository) CloseAllForMember(ctx context.Context, memberID string) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE mentoring_requests SET open = FALSE WHERE member_id = $1 AND open`, memberID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ============================================
// PostgreSQL Notification Repository
// ============================================

type pgNotificationRepository struct {
	pool *pgxpool.Pool
}

func (r *pgNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	data, err := json.Marshal(notification.Data)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO notifications (member_id, type, title, message, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		notification.MemberID, notification.Type, notification.Title,
		notification.Message, data,
	).Scan(&notification.ID, &notification.CreatedAt)
}

func (r *pgNotificationRepository) FindByMemberID(ctx context.Context, memberID string, unreadOnly bool) ([]*Notification, error) {
	query := `
		SELECT id, member_id, type, title, message, read, data, created_at
		FROM notifications WHERE member_id = $1
	`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		var data []byte
		if err := rows.Scan(&n.ID, &n.MemberID, &n.Type, &n.Title, &n.Message,
			&n.Read, &data, &n.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, err
			}
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *pgNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return err
}

func (r *pgNotificationRepository) MarkAllAsRead(ctx context.Context, memberID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE member_id = $1`, memberID)
	return err
}

func (r *pgNotificationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	return err
}
