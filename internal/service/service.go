package service

import (
	"github.com/GlebRadaev/spinearn/internal/autoapprove"
	"github.com/GlebRadaev/spinearn/internal/cache"
	"github.com/GlebRadaev/spinearn/internal/config"
	"github.com/GlebRadaev/spinearn/internal/handlers/admin"
	"github.com/GlebRadaev/spinearn/internal/handlers/ads"
	"github.com/GlebRadaev/spinearn/internal/handlers/auth"
	"github.com/GlebRadaev/spinearn/internal/handlers/referrals"
	"github.com/GlebRadaev/spinearn/internal/handlers/spin"
	"github.com/GlebRadaev/spinearn/internal/handlers/streak"
	"github.com/GlebRadaev/spinearn/internal/handlers/wallet"
	"github.com/GlebRadaev/spinearn/internal/handlers/withdrawals"
	"github.com/GlebRadaev/spinearn/internal/pg"
	"github.com/GlebRadaev/spinearn/internal/repo"
	pkgauth "github.com/GlebRadaev/spinearn/pkg/auth"

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

type Services struct {
	AuthService       auth.Service
	SpinService       spin.Service
	StreakService     streak.Service
	WalletService     wallet.Service
	WithdrawalService withdrawals.Service
	ReferralService   referrals.Service
	AdsService        ads.Service
	AdminService      admin.Service

	// AutoApprove is the withdrawal queue consumed by the background approver.
	AutoApprove autoapprove.Withdrawals
	JWTService  pkgauth.JWTServiceInterface
}

// New builds the service graph. walletCache may be nil.
func New(cfg *config.Config, repos *repo.Repositories, txManager pg.TXManager, walletCache *cache.WalletCache) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	jwtService := pkgauth.NewJWTService(cfg.JWTSecret)
	economyService := economyservice.New(repos.ConfigRepo, cfg.EconomyCacheTTL)
	ledgerService := ledgerservice.New(txManager, repos.UserRepo, repos.LedgerRepo, walletCache)
	withdrawalService := withdrawalservice.New(txManager, repos.UserRepo, repos.Withdrawal, economyService, ledgerService)

	spinService := spinservice.New(txManager, repos.UserRepo, repos.SpinRepo, repos.LedgerRepo,
		economyService, ledgerService, pkgauth.NewSpinTokenService(cfg.SpinTokenSecret), spinservice.Options{
			TokenTTL: cfg.SpinTokenTTL,
			Location: loc,
		})

	return &Services{
		AuthService:       authservice.New(repos.UserRepo, &pkgauth.HashService{}, jwtService, cfg.AccessTokenTTL),
		SpinService:       spinService,
		StreakService:     streakservice.New(txManager, repos.UserRepo, economyService, ledgerService, loc),
		WalletService:     walletservice.New(repos.UserRepo, repos.LedgerRepo, walletCache),
		WithdrawalService: withdrawalService,
		ReferralService:   referralservice.New(txManager, repos.UserRepo, repos.ReferralRepo, economyService, ledgerService),
		AdsService: adsservice.New(txManager, repos.UserRepo, repos.LedgerRepo, economyService, ledgerService,
			cfg.SSVSharedSecret, cfg.SSVAdUnits, loc),
		AdminService: adminservice.New(txManager, repos.UserRepo, repos.StatsRepo, withdrawalService,
			economyService, ledgerService, loc),

		AutoApprove: withdrawalService,
		JWTService:  jwtService,
	}, nil
}
