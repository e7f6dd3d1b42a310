// Package catalog lists the Copernicus Marine products odmaps knows how to
// download and plot.
package catalog

import "fmt"

// Remote catalog ids. Several products are variables of the same remote
// dataset.
const (
	windL4MonthlyID       = "cmems_obs-wind_glo_phy_my_l4_P1M"
	currentsDailyID       = "cmems_obs-mob_glo_phy-cur_my_0.25deg_P1D-m"
	defaultLabelFmt       = "%.2f"
	interannualLabel      = "inter-annual variability"
	dailyVariabilityLabel = "daily variability"
)

// Dataset is a closed set of known products.
type Dataset int

const (
	MonthlyWindStress Dataset = iota
	EkmanCurrentsGlob
	GeoCurrentsGlob
	CurrentsModel
)

// Descriptor is the fixed metadata of a product. Variables[0] and
// Variables[1] are the eastward and northward vector components.
type Descriptor struct {
	ShortName   string
	CatalogID   string
	FileName    string
	ProductName string
	Variables   []string
	// PlotTitle takes the month number as its only verb.
	PlotTitle   string
	ContourType string
	LabelFormat string
	SaveName    string
	ColorMap    string
}

var registry = [...]Descriptor{
	MonthlyWindStress: {
		ShortName:   "monthly_wind_stress",
		CatalogID:   windL4MonthlyID,
		FileName:    "cmems_mod_setio_winds_monthly.nc",
		ProductName: "Global Ocean Monthly Mean Sea Surface Wind and Stress",
		Variables:   []string{"eastward_stress", "northward_stress"},
		PlotTitle:   "Mean surface wind stress in month %d (with interannual variability contours)",
		ContourType: interannualLabel,
		LabelFormat: defaultLabelFmt,
		SaveName:    "Windstress_month",
		ColorMap:    "speed",
	},
	EkmanCurrentsGlob: {
		ShortName:   "Ekman_currents_glob",
		CatalogID:   currentsDailyID,
		FileName:    "cmems_setio_currents.nc",
		ProductName: "Ekman Surface Currents",
		Variables:   []string{"ue", "ve"},
		PlotTitle:   "Mean surface Ekman currents in month %d (with daily variability contours)",
		ContourType: dailyVariabilityLabel,
		LabelFormat: defaultLabelFmt,
		SaveName:    "EkmanGlobCurrents_month",
		ColorMap:    "haline",
	},
	GeoCurrentsGlob: {
		ShortName:   "geo_currents_glob",
		CatalogID:   currentsDailyID,
		FileName:    "cmems_setio_currents.nc",
		ProductName: "Geostrophic Surface Currents",
		Variables:   []string{"ugos", "vgos"},
		PlotTitle:   "Mean geostrophic surface currents in month %d (with daily variability contours)",
		ContourType: dailyVariabilityLabel,
		LabelFormat: defaultLabelFmt,
		SaveName:    "GeoCurrents_month",
		ColorMap:    "dense",
	},
	CurrentsModel: {
		ShortName:   "currents_model",
		CatalogID:   currentsDailyID,
		FileName:    "cmems_mod_setio_currents.nc",
		ProductName: "Modelled Surface Currents",
		Variables:   []string{"uo", "vo"},
		PlotTitle:   "Mean modelled surface currents in month %d (with daily variability contours)",
		ContourType: dailyVariabilityLabel,
		LabelFormat: defaultLabelFmt,
		SaveName:    "ModelledCurrents_month",
		ColorMap:    "matter",
	},
}

// Descriptor returns the metadata of d. The Variables slice is a copy.
func (d Dataset) Descriptor() Descriptor {
	desc := registry[d]
	desc.Variables = append([]string(nil), desc.Variables...)
	return desc
}

func (d Dataset) String() string {
	if d < 0 || int(d) >= len(registry) {
		return fmt.Sprintf("Dataset(%d)", int(d))
	}
	return registry[d].ShortName
}

// All returns every known dataset in registry order.
func All() []Dataset {
	ds := make([]Dataset, len(registry))
	for i := range registry {
		ds[i] = Dataset(i)
	}
	return ds
}

// Names returns the short names of all known datasets.
func Names() []string {
	names := make([]string, len(registry))
	for i, d := range registry {
		names[i] = d.ShortName
	}
	return names
}

// UnknownDatasetError is returned by Resolve for a short name that is not in
// the registry.
type UnknownDatasetError struct {
	ShortName string
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("dataset with short name %q not found", e.ShortName)
}

// Lookup returns the dataset with the exact short name.
func Lookup(shortName string) (Dataset, error) {
	for i, d := range registry {
		if d.ShortName == shortName {
			return Dataset(i), nil
		}
	}
	return 0, &UnknownDatasetError{ShortName: shortName}
}

// Resolve returns the descriptor for the exact short name.
func Resolve(shortName string) (Descriptor, error) {
	d, err := Lookup(shortName)
	if err != nil {
		return Descriptor{}, err
	}
	return d.Descriptor(), nil
}
