package market

import (
	"regexp"
	"strings"

	"tradeup/internal/wear"
)

const statTrakPrefix = "StatTrak™ "

var (
	conditionSuffix = regexp.MustCompile(`\s\((Factory New|Minimal Wear|Field-Tested|Well-Worn|Battle-Scarred)\)$`)
	phaseSuffix     = regexp.MustCompile(`\s\((Phase \d|Emerald|Ruby|Sapphire|Black Pearl)\)$`)
)

// ParseMarketName splits a market hash name into the catalog name, condition
// and StatTrak flag. ok is false for Souvenir items and names without a
// condition suffix.
func ParseMarketName(full string) (base string, cond wear.Condition, statTrak bool, ok bool) {
	if strings.Contains(full, "Souvenir") {
		return "", 0, false, false
	}
	statTrak = strings.Contains(full, "StatTrak™")
	clean := strings.Replace(full, statTrakPrefix, "", 1)

	m := conditionSuffix.FindStringSubmatchIndex(clean)
	if m == nil {
		return "", 0, false, false
	}
	cond, err := wear.ParseCondition(clean[m[2]:m[3]])
	if err != nil {
		return "", 0, false, false
	}
	base = strings.TrimSpace(clean[:m[0]])
	base = strings.TrimSpace(phaseSuffix.ReplaceAllString(base, ""))
	return base, cond, statTrak, true
}
