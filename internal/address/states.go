package address

import "strings"

// states maps lowercase names and ISO 3166-2:IN codes to the canonical name.
var states = map[string]string{}

func init() {
	for code, name := range map[string]string{
		"AN": "Andaman and Nicobar Islands",
		"AP": "Andhra Pradesh",
		"AR": "Arunachal Pradesh",
		"AS": "Assam",
		"BR": "Bihar",
		"CH": "Chandigarh",
		"CT": "Chhattisgarh",
		"DH": "Dadra and Nagar Haveli and Daman and Diu",
		"DL": "Delhi",
		"GA": "Goa",
		"GJ": "Gujarat",
		"HR": "Haryana",
		"HP": "Himachal Pradesh",
		"JK": "Jammu and Kashmir",
		"JH": "Jharkhand",
		"KA": "Karnataka",
		"KL": "Kerala",
		"LA": "Ladakh",
		"LD": "Lakshadweep",
		"MP": "Madhya Pradesh",
		"MH": "Maharashtra",
		"MN": "Manipur",
		"ML": "Meghalaya",
		"MZ": "Mizoram",
		"NL": "Nagaland",
		"OR": "Odisha",
		"PY": "Puducherry",
		"PB": "Punjab",
		"RJ": "Rajasthan",
		"SK": "Sikkim",
		"TN": "Tamil Nadu",
		"TG": "Telangana",
		"TR": "Tripura",
		"UP": "Uttar Pradesh",
		"UT": "Uttarakhand",
		"WB": "West Bengal",
	} {
		states[strings.ToLower(code)] = name
		states[strings.ToLower(name)] = name
	}

	// Common alternates
	states["new delhi"] = "Delhi"
	states["nct of delhi"] = "Delhi"
	states["orissa"] = "Odisha"
	states["pondicherry"] = "Puducherry"
	states["uttaranchal"] = "Uttarakhand"
	states["ts"] = "Telangana"
	states["uk"] = "Uttarakhand"
	states["od"] = "Odisha"
}

// LookupState returns the canonical name for a state or union territory,
// matching names and two-letter codes case-insensitively.
func LookupState(s string) (string, bool) {
	name, ok := states[strings.ToLower(strings.Join(strings.Fields(s), " "))]
	return name, ok
}
