package geo

import "strings"

// iso2to3 maps ISO 3166-1 alpha-2 codes, as returned by IP geolocation
// providers, to the alpha-3 codes used by the centroid table.
var iso2to3 = map[string]string{
	"AF": "AFG", "AL": "ALB", "DZ": "DZA", "AO": "AGO", "AR": "ARG",
	"AM": "ARM", "AU": "AUS", "AT": "AUT", "AZ": "AZE", "BD": "BGD",
	"BE": "BEL", "BO": "BOL", "BR": "BRA", "BG": "BGR", "KH": "KHM",
	"CM": "CMR", "CA": "CAN", "CL": "CHL", "CN": "CHN", "CO": "COL",
	"CD": "COD", "CR": "CRI", "HR": "HRV", "CU": "CUB", "CZ": "CZE",
	"DK": "DNK", "DO": "DOM", "EC": "ECU", "EG": "EGY", "SV": "SLV",
	"ET": "ETH", "FJ": "FJI", "FI": "FIN", "FR": "FRA", "DE": "DEU",
	"GH": "GHA", "GR": "GRC", "GT": "GTM", "HT": "HTI", "HN": "HND",
	"HU": "HUN", "IS": "ISL", "IN": "IND", "ID": "IDN", "IR": "IRN",
	"IQ": "IRQ", "IE": "IRL", "IL": "ISR", "IT": "ITA", "JM": "JAM",
	"JP": "JPN", "JO": "JOR", "KZ": "KAZ", "KE": "KEN", "KR": "KOR",
	"LA": "LAO", "LB": "LBN", "LY": "LBY", "MG": "MDG", "MW": "MWI",
	"MY": "MYS", "MX": "MEX", "MN": "MNG", "MA": "MAR", "MZ": "MOZ",
	"MM": "MMR", "NP": "NPL", "NL": "NLD", "NZ": "NZL", "NI": "NIC",
	"NE": "NER", "NG": "NGA", "NO": "NOR", "PK": "PAK", "PA": "PAN",
	"PG": "PNG", "PY": "PRY", "PE": "PER", "PH": "PHL", "PL": "POL",
	"PT": "PRT", "RO": "ROU", "RU": "RUS", "SA": "SAU", "SN": "SEN",
	"RS": "SRB", "SG": "SGP", "SK": "SVK", "SI": "SVN", "SO": "SOM",
	"ZA": "ZAF", "ES": "ESP", "LK": "LKA", "SD": "SDN", "SE": "SWE",
	"CH": "CHE", "SY": "SYR", "TW": "TWN", "TJ": "TJK", "TZ": "TZA",
	"TH": "THA", "TR": "TUR", "UG": "UGA", "UA": "UKR", "AE": "ARE",
	"GB": "GBR", "US": "USA", "UY": "URY", "UZ": "UZB", "VE": "VEN",
	"VN": "VNM", "YE": "YEM", "ZM": "ZMB", "ZW": "ZWE",
}

// ISO2ToISO3 converts an alpha-2 country code to alpha-3. The empty
// string signals an unknown code; callers fall open to no reordering.
func ISO2ToISO3(iso2 string) string {
	return iso2to3[strings.ToUpper(strings.TrimSpace(iso2))]
}
