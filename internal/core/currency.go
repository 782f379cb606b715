package core

import "strings"

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// SupportedCurrencies is the fixed catalogue accepted by the application.
var SupportedCurrencies = []Currency{
	{Code: "USD", Name: "Dólar estadounidense", Symbol: "$"},
	{Code: "EUR", Name: "Euro", Symbol: "€"},
	{Code: "CZK", Name: "Corona checa", Symbol: "Kč"},
	{Code: "GBP", Name: "Libra esterlina", Symbol: "£"},
	{Code: "COP", Name: "Peso colombiano", Symbol: "$"},
	{Code: "MXN", Name: "Peso mexicano", Symbol: "$"},
	{Code: "ARS", Name: "Peso argentino", Symbol: "$"},
	{Code: "BRL", Name: "Real brasileño", Symbol: "R$"},
	{Code: "CLP", Name: "Peso chileno", Symbol: "$"},
	{Code: "PEN", Name: "Sol peruano", Symbol: "S/"},
	{Code: "JPY", Name: "Yen japonés", Symbol: "¥"},
	{Code: "CAD", Name: "Dólar canadiense", Symbol: "C$"},
}

// DefaultBaseCurrency is assumed for owners without a stored preference.
const DefaultBaseCurrency = "USD"

var supportedIndex = func() map[string]Currency {
	m := make(map[string]Currency, len(SupportedCurrencies))
	for _, c := range SupportedCurrencies {
		m[c.Code] = c
	}
	return m
}()

// IsSupportedCurrency reports whether code (already upper-cased) is in the catalogue.
func IsSupportedCurrency(code string) bool {
	_, ok := supportedIndex[code]
	return ok
}

// NormalizeCurrency trims and upper-cases a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CurrencyCodes lists the supported codes in catalogue order.
func CurrencyCodes() []string {
	codes := make([]string, len(SupportedCurrencies))
	for i, c := range SupportedCurrencies {
		codes[i] = c.Code
	}
	return codes
}

// LookupCurrency returns catalogue metadata for code.
func LookupCurrency(code string) (Currency, bool) {
	c, ok := supportedIndex[code]
	return c, ok
}
