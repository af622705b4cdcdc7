package policy

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"driveshare-settlement/internal/config"
	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// Keys of the platform_settings rows read by the provider.
const (
	KeyMileageChargingEnabled         = "mileage_charging_enabled"
	KeyTamperingPenaltyAmount         = "mileage_tampering_penalty_amount"
	KeyMissingMileagePenaltyAmount    = "mileage_missing_penalty_amount"
	KeyInstantWithdrawalFeePercentage = "instant_withdrawal_fee_percentage"
)

const (
	mileageCacheKey = "policy:mileage"
	payoutCacheKey  = "policy:payout"
)

// Provider hands out typed policy snapshots. Settlement code never reads raw settings.
type Provider interface {
	MileagePolicy(ctx context.Context) (domain.MileagePolicy, error)
	PayoutPolicy(ctx context.Context) (domain.PayoutPolicy, error)
	Invalidate()
}

// Defaults apply when a setting row is absent.
type Defaults struct {
	MileagePolicy domain.MileagePolicy
	PayoutPolicy  domain.PayoutPolicy
}

type cachedProvider struct {
	settings repository.SettingsRepository
	defaults Defaults
	cache    *cache.Cache
}

func NewProvider(settings repository.SettingsRepository, defaults Defaults, ttl time.Duration) Provider {
	return &cachedProvider{
		settings: settings,
		defaults: defaults,
		cache:    cache.New(ttl, 2*ttl),
	}
}

func (p *cachedProvider) MileagePolicy(ctx context.Context) (domain.MileagePolicy, error) {
	if v, ok := p.cache.Get(mileageCacheKey); ok {
		return v.(domain.MileagePolicy), nil
	}

	raw, err := p.settings.GetAll(ctx)
	if err != nil {
		return domain.MileagePolicy{}, fmt.Errorf("load platform settings: %w", err)
	}

	mp := p.defaults.MileagePolicy
	if mp.ChargingEnabledGlobally, err = boolSetting(raw, KeyMileageChargingEnabled, mp.ChargingEnabledGlobally); err != nil {
		return domain.MileagePolicy{}, err
	}
	if mp.TamperingPenaltyAmount, err = decimalSetting(raw, KeyTamperingPenaltyAmount, mp.TamperingPenaltyAmount); err != nil {
		return domain.MileagePolicy{}, err
	}
	if mp.MissingMileagePenaltyAmount, err = decimalSetting(raw, KeyMissingMileagePenaltyAmount, mp.MissingMileagePenaltyAmount); err != nil {
		return domain.MileagePolicy{}, err
	}

	p.cache.SetDefault(mileageCacheKey, mp)
	logger.Debug("Mileage policy loaded", "enabled", mp.ChargingEnabledGlobally,
		"tampering", mp.TamperingPenaltyAmount.String(), "missing", mp.MissingMileagePenaltyAmount.String())
	return mp, nil
}

func (p *cachedProvider) PayoutPolicy(ctx context.Context) (domain.PayoutPolicy, error) {
	if v, ok := p.cache.Get(payoutCacheKey); ok {
		return v.(domain.PayoutPolicy), nil
	}

	raw, err := p.settings.GetAll(ctx)
	if err != nil {
		return domain.PayoutPolicy{}, fmt.Errorf("load platform settings: %w", err)
	}

	pp := p.defaults.PayoutPolicy
	if pp.InstantWithdrawalFeePercentage, err = decimalSetting(raw, KeyInstantWithdrawalFeePercentage, pp.InstantWithdrawalFeePercentage); err != nil {
		return domain.PayoutPolicy{}, err
	}
	if pp.InstantWithdrawalFeePercentage.IsNegative() || pp.InstantWithdrawalFeePercentage.GreaterThan(decimal.NewFromInt(100)) {
		return domain.PayoutPolicy{}, fmt.Errorf("setting %s out of range: %s", KeyInstantWithdrawalFeePercentage, pp.InstantWithdrawalFeePercentage)
	}

	p.cache.SetDefault(payoutCacheKey, pp)
	return pp, nil
}

// Invalidate drops cached snapshots so the next read hits the settings table.
func (p *cachedProvider) Invalidate() {
	p.cache.Flush()
}

func boolSetting(raw map[string]string, key string, def bool) (bool, error) {
	v, ok := raw[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("setting %s: %w", key, err)
	}
	return b, nil
}

func decimalSetting(raw map[string]string, key string, def decimal.Decimal) (decimal.Decimal, error) {
	v, ok := raw[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %s: %w", key, err)
	}
	return d, nil
}

// DefaultsFromConfig builds the fallback policies from the settlement config section.
func DefaultsFromConfig(cfg config.SettlementConfig) (Defaults, error) {
	tampering, err := decimal.NewFromString(cfg.TamperingPenaltyAmount)
	if err != nil {
		return Defaults{}, fmt.Errorf("tampering penalty amount: %w", err)
	}
	missing, err := decimal.NewFromString(cfg.MissingMileagePenaltyAmount)
	if err != nil {
		return Defaults{}, fmt.Errorf("missing mileage penalty amount: %w", err)
	}
	fee, err := decimal.NewFromString(cfg.InstantWithdrawalFeePercentage)
	if err != nil {
		return Defaults{}, fmt.Errorf("instant withdrawal fee percentage: %w", err)
	}

	enabled := true
	if cfg.MileageChargingEnabled != nil {
		enabled = *cfg.MileageChargingEnabled
	}

	return Defaults{
		MileagePolicy: domain.MileagePolicy{
			ChargingEnabledGlobally:     enabled,
			TamperingPenaltyAmount:      tampering,
			MissingMileagePenaltyAmount: missing,
		},
		PayoutPolicy: domain.PayoutPolicy{
			InstantWithdrawalFeePercentage: fee,
		},
	}, nil
}
