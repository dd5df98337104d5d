package repo

import (
	"github.com/GlebRadaev/spinearn/internal/jobs"
	"github.com/GlebRadaev/spinearn/internal/pg"
	configrepo "github.com/GlebRadaev/spinearn/internal/repo/config-repo"
	ledgerrepo "github.com/GlebRadaev/spinearn/internal/repo/ledger-repo"
	referralrepo "github.com/GlebRadaev/spinearn/internal/repo/referral-repo"
	spinrepo "github.com/GlebRadaev/spinearn/internal/repo/spin-repo"
	statsrepo "github.com/GlebRadaev/spinearn/internal/repo/stats-repo"
	userrepo "github.com/GlebRadaev/spinearn/internal/repo/user-repo"
	withdrawalrepo "github.com/GlebRadaev/spinearn/internal/repo/withdrawal-repo"
	"github.com/GlebRadaev/spinearn/internal/service/adminservice"
	"github.com/GlebRadaev/spinearn/internal/service/adsservice"
	"github.com/GlebRadaev/spinearn/internal/service/authservice"
	"github.com/GlebRadaev/spinearn/internal/service/economyservice"
	"github.com/GlebRadaev/spinearn/internal/service/ledgerservice"
	"github.com/GlebRadaev/spinearn/internal/service/referralservice"
	"github.com/GlebRadaev/spinearn/internal/service/spinservice"
	"github.com/GlebRadaev/spinearn/internal/service/streakservice"
	"github.com/GlebRadaev/spinearn/internal/service/walletservice"
	"github.com/GlebRadaev/spinearn/internal/service/withdrawalservice"
)

// UserRepo is everything the services need from the users table.
type UserRepo interface {
	authservice.Repo
	ledgerservice.UserRepo
	spinservice.UserRepo
	streakservice.UserRepo
	referralservice.UserRepo
	withdrawalservice.UserRepo
	walletservice.UserRepo
	adsservice.UserRepo
	adminservice.UserRepo
}

type LedgerRepo interface {
	ledgerservice.LedgerRepo
	walletservice.LedgerRepo
	spinservice.EarningsRepo
	adsservice.GrantRepo
	jobs.DriftRepo
}

type Repositories struct {
	UserRepo     UserRepo
	LedgerRepo   LedgerRepo
	SpinRepo     spinservice.SpinRepo
	Withdrawal   withdrawalservice.WithdrawalRepo
	ConfigRepo   economyservice.Repo
	ReferralRepo referralservice.ReferralRepo
	StatsRepo    adminservice.StatsRepo
}

func New(conn pg.Database) *Repositories {
	return &Repositories{
		UserRepo:     userrepo.New(conn),
		LedgerRepo:   ledgerrepo.New(conn),
		SpinRepo:     spinrepo.New(conn),
		Withdrawal:   withdrawalrepo.New(conn),
		ConfigRepo:   configrepo.New(conn),
		ReferralRepo: referralrepo.New(conn),
		StatsRepo:    statsrepo.New(conn),
	}
}
