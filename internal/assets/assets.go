// Package assets holds the static registry of tracked futures markets.
package assets

// Asset is one tracked futures market. CotCode is the CFTC contract market
// code used to select rows from the disaggregated report.
type Asset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CotCode     string `json:"cot_code"`
	Seasonality bool   `json:"seasonality"`
}

var registry = []Asset{
	{ID: "CL", Name: "Crude Oil", CotCode: "067651", Seasonality: true},
	{ID: "GC", Name: "Gold", CotCode: "088691", Seasonality: true},
	{ID: "SI", Name: "Silver", CotCode: "084691", Seasonality: true},
	{ID: "ZC", Name: "Corn", CotCode: "002602", Seasonality: true},
	{ID: "ZW", Name: "Wheat", CotCode: "001602", Seasonality: true},
	{ID: "ZS", Name: "Soybeans", CotCode: "005602", Seasonality: true},
	{ID: "KC", Name: "Coffee", CotCode: "083731", Seasonality: true},
	{ID: "ZN", Name: "10Y Notes", CotCode: "043602", Seasonality: false},
	{ID: "ZB", Name: "30Y Bonds", CotCode: "020601", Seasonality: false},
}

// All returns the full registry in display order.
func All() []Asset {
	out := make([]Asset, len(registry))
	copy(out, registry)
	return out
}

// ByID looks up an asset by its identifier.
func ByID(id string) (Asset, bool) {
	for _, a := range registry {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}
