package seed

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/types"
)

// SeedData inserts development fixtures: members in assorted lifecycle
// states plus the activity records the eligibility evaluator aggregates.
// Safe to call repeatedly; existing emails are skipped.
func SeedData(repos *repository.Repositories) {
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[Seed] Failed to hash password: %v", err)
		return
	}
	password := string(hashed)

	now := time.Now()

	members := []*repository.Member{
		{
			Email:    "ana@finlead.dev",
			Password: password,
			Name:     "Ana Ferreira",
			Role:     types.RoleMember,
			Status:   types.StatusActive,
			JoinedAt: now.AddDate(0, -8, 0),
		},
		{
			Email:            "bruno@finlead.dev",
			Password:         password,
			Name:             "Bruno Costa",
			Role:             types.RoleMember,
			Status:           types.StatusActive,
			JoinedAt:         now.AddDate(0, -1, -10),
			MeetingCompleted: true,
			SurveyCompleted:  true,
		},
		{
			Email:    "carla@finlead.dev",
			Password: password,
			Name:     "Carla Mendes",
			Role:     types.RoleAssociate,
			Status:   types.StatusActive,
			JoinedAt: now.AddDate(-1, -2, 0),
		},
		{
			Email:    "diego@finlead.dev",
			Password: password,
			Name:     "Diego Ramos",
			Role:     types.RoleManager,
			Range:    1,
			Status:   types.StatusActive,
			JoinedAt: now.AddDate(-2, 0, 0),
		},
	}

	for _, m := range members {
		existing, err := repos.MemberRepo.FindByEmail(ctx, m.Email)
		if err != nil {
			log.Printf("[Seed] Failed to check %s: %v", m.Email, err)
			continue
		}
		if existing != nil {
			continue
		}
		if err := repos.MemberRepo.Create(ctx, m); err != nil {
			log.Printf("[Seed] Failed to create %s: %v", m.Email, err)
			continue
		}
		log.Printf("[Seed] Created member %s (%s, %s)", m.Email, m.Role, m.Status)
	}

	// Activity for the associate so a manager eligibility check has data.
	carla, err := repos.MemberRepo.FindByEmail(ctx, "carla@finlead.dev")
	if err != nil || carla == nil {
		return
	}

	for i := 1; i <= 4; i++ {
		repos.ActivityRepo.AddSale(ctx, &repository.SalesRecord{
			MemberID:     carla.ID,
			Amount:       decimal.NewFromInt(280_000),
			InsuredCount: 5,
			OccurredAt:   now.AddDate(0, -i, 0),
		})
	}
	repos.ActivityRepo.AddReferral(ctx, &repository.Referral{
		MemberID:   carla.ID,
		TargetRole: types.RoleMember,
		Approved:   true,
	})

	repos.CompensationRepo.Upsert(ctx, &repository.Compensation{
		MemberID:       carla.ID,
		Month:          now.AddDate(0, -1, 0).Format("2006-01"),
		ReferralReward: decimal.NewFromInt(1200),
		ContractReward: decimal.NewFromInt(8400),
		Bonus:          decimal.NewFromInt(500),
		Deduction:      decimal.Zero,
	})

	log.Println("[Seed] 🌱 Development data ready")
}
