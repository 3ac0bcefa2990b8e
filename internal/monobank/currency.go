package monobank

// The bank reports currencies as numeric ISO 4217 codes. This table covers
// the currencies the bank actually quotes against UAH plus the usual
// suspects; unknown codes are skipped at the rate-mapping boundary.
var numericToAlpha = map[int]string{
	36:  "AUD",
	124: "CAD",
	156: "CNY",
	203: "CZK",
	208: "DKK",
	348: "HUF",
	356: "INR",
	376: "ILS",
	392: "JPY",
	398: "KZT",
	410: "KRW",
	414: "KWD",
	440: "LTL",
	498: "MDL",
	554: "NZD",
	578: "NOK",
	634: "QAR",
	643: "RUB",
	682: "SAR",
	702: "SGD",
	752: "SEK",
	756: "CHF",
	784: "AED",
	818: "EGP",
	826: "GBP",
	840: "USD",
	933: "BYN",
	943: "MZN",
	946: "RON",
	949: "TRY",
	975: "BGN",
	978: "EUR",
	980: "UAH",
	985: "PLN",
	986: "BRL",
}

// AlphaCode maps a numeric ISO 4217 currency code to its alphabetic form.
func AlphaCode(numeric int) (string, bool) {
	code, ok := numericToAlpha[numeric]
	return code, ok
}
