package common

import (
	"fleetbook/src/types"
	"strings"
)

var eurozone = []string{
	"AT", "BE", "CY", "DE", "EE", "ES", "FI", "FR", "GR", "HR",
	"IE", "IT", "LT", "LU", "LV", "MT", "NL", "PT", "SI", "SK",
}

type railGate struct {
	countries  []string
	currencies []string
}

var railGates = map[types.BankTransferType]railGate{
	types.RAIL_SEPA_DEBIT: {countries: eurozone, currencies: []string{"eur"}},
	types.RAIL_ACH_DEBIT:  {countries: []string{"US"}, currencies: []string{"usd"}},
	types.RAIL_IDEAL:      {countries: []string{"NL"}, currencies: []string{"eur"}},
	types.RAIL_GIROPAY:    {countries: []string{"DE"}, currencies: []string{"eur"}},
	types.RAIL_BANCONTACT: {countries: []string{"BE"}, currencies: []string{"eur"}},
	types.RAIL_EPS:        {countries: []string{"AT"}, currencies: []string{"eur"}},
	types.RAIL_PRZELEWY24: {countries: []string{"PL"}, currencies: []string{"eur", "pln"}},
	types.RAIL_FPX:        {countries: []string{"MY"}, currencies: []string{"myr"}},
}

// SupportedRails returns every bank-transfer rail available for a country and
// currency. The customer-balance rail is the universal fallback and is always
// included.
func SupportedRails(country, currency string) []types.BankTransferType {
	country = strings.ToUpper(country)
	currency = strings.ToLower(currency)
	rails := make([]types.BankTransferType, 0, 4)
	for _, rail := range []types.BankTransferType{
		types.RAIL_SEPA_DEBIT,
		types.RAIL_ACH_DEBIT,
		types.RAIL_IDEAL,
		types.RAIL_GIROPAY,
		types.RAIL_BANCONTACT,
		types.RAIL_EPS,
		types.RAIL_PRZELEWY24,
		types.RAIL_FPX,
	} {
		gate := railGates[rail]
		if containsString(gate.countries, country) && containsString(gate.currencies, currency) {
			rails = append(rails, rail)
		}
	}
	rails = append(rails, types.RAIL_CUSTOMER_BALANCE)
	return rails
}

// ToGatewayMethodTypes maps one rail to the gateway-native payment method
// type identifiers. Unknown rails fail closed.
func ToGatewayMethodTypes(rail types.BankTransferType) ([]string, error) {
	switch rail {
	case types.RAIL_SEPA_DEBIT:
		return []string{"sepa_debit"}, nil
	case types.RAIL_ACH_DEBIT:
		return []string{"us_bank_account"}, nil
	case types.RAIL_IDEAL:
		return []string{"ideal"}, nil
	case types.RAIL_GIROPAY:
		return []string{"giropay"}, nil
	case types.RAIL_BANCONTACT:
		return []string{"bancontact"}, nil
	case types.RAIL_EPS:
		return []string{"eps"}, nil
	case types.RAIL_PRZELEWY24:
		return []string{"p24"}, nil
	case types.RAIL_FPX:
		return []string{"fpx"}, nil
	case types.RAIL_CUSTOMER_BALANCE:
		return []string{"customer_balance"}, nil
	}
	return nil, ErrUnsupportedRail
}

// AllRails lists every declared rail, for config seeding and adapter checks.
func AllRails() []types.BankTransferType {
	return []types.BankTransferType{
		types.RAIL_SEPA_DEBIT,
		types.RAIL_ACH_DEBIT,
		types.RAIL_IDEAL,
		types.RAIL_GIROPAY,
		types.RAIL_BANCONTACT,
		types.RAIL_EPS,
		types.RAIL_PRZELEWY24,
		types.RAIL_FPX,
		types.RAIL_CUSTOMER_BALANCE,
	}
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
