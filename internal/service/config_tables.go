package service

import (
	"member-portal-be/internal/model"
)

// TierInfo is the immutable per-tier configuration used by the membership
// service. Loaded once at startup from the membership_tiers table, with
// compiled-in defaults when the table is empty, so tests can swap in
// alternate tiers without touching a database.
type TierInfo struct {
	Name           model.MemberType
	Ordinal        int
	Price          float64
	DurationMonths int // 0 = non-expiring
	Benefits       []string
}

type TierTable struct {
	tiers map[model.MemberType]TierInfo
}

func DefaultTierTable() *TierTable {
	return buildTierTable([]TierInfo{
		{Name: model.MemberTypeRegular, Ordinal: 0, Price: 0, DurationMonths: 12, Benefits: []string{"Member directory", "Event access"}},
		{Name: model.MemberTypePremium, Ordinal: 1, Price: 99, DurationMonths: 12, Benefits: []string{"Member directory", "Event access", "Priority referrals", "Training library"}},
		{Name: model.MemberTypeLifetime, Ordinal: 2, Price: 499, DurationMonths: 0, Benefits: []string{"All premium benefits", "Lifetime membership"}},
		{Name: model.MemberTypeHonorary, Ordinal: 3, Price: 0, DurationMonths: 0, Benefits: []string{"All premium benefits", "Honorary recognition"}},
	})
}

// NewTierTable builds the table from seeded rows, falling back to the
// defaults when no rows exist.
func NewTierTable(rows []model.MembershipTier) *TierTable {
	if len(rows) == 0 {
		return DefaultTierTable()
	}

	infos := make([]TierInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, TierInfo{
			Name:           row.Name,
			Ordinal:        row.Ordinal,
			Price:          row.Price,
			DurationMonths: row.DurationMonths,
			Benefits:       row.Benefits,
		})
	}
	return buildTierTable(infos)
}

func buildTierTable(infos []TierInfo) *TierTable {
	tiers := make(map[model.MemberType]TierInfo, len(infos))
	for _, info := range infos {
		tiers[info.Name] = info
	}
	return &TierTable{tiers: tiers}
}

func (t *TierTable) Lookup(name model.MemberType) (TierInfo, bool) {
	info, ok := t.tiers[name]
	return info, ok
}

// CommissionRuleInfo mirrors a commission_rules row: percentage plus flat
// amount, applied only when the sale reaches MinimumSale.
type CommissionRuleInfo struct {
	Tier        string
	Percentage  float64
	FlatAmount  float64
	MinimumSale float64
}

type CommissionTable struct {
	rules map[string]CommissionRuleInfo
}

func DefaultCommissionTable() *CommissionTable {
	return buildCommissionTable([]CommissionRuleInfo{
		{Tier: ReferralTier1, Percentage: 5, FlatAmount: 0, MinimumSale: 50},
		{Tier: ReferralTier2, Percentage: 7.5, FlatAmount: 10, MinimumSale: 50},
		{Tier: ReferralTier3, Percentage: 10, FlatAmount: 25, MinimumSale: 100},
	})
}

func NewCommissionTable(rows []model.CommissionRule) *CommissionTable {
	if len(rows) == 0 {
		return DefaultCommissionTable()
	}

	infos := make([]CommissionRuleInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, CommissionRuleInfo{
			Tier:        row.Tier,
			Percentage:  row.Percentage,
			FlatAmount:  row.FlatAmount,
			MinimumSale: row.MinimumSale,
		})
	}
	return buildCommissionTable(infos)
}

func buildCommissionTable(infos []CommissionRuleInfo) *CommissionTable {
	rules := make(map[string]CommissionRuleInfo, len(infos))
	for _, info := range infos {
		rules[info.Tier] = info
	}
	return &CommissionTable{rules: rules}
}

func (t *CommissionTable) Lookup(tier string) (CommissionRuleInfo, bool) {
	rule, ok := t.rules[tier]
	return rule, ok
}
