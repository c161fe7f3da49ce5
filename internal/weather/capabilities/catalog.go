package capabilities

import "github.com/i474232898/weather-planner/internal/weather"

// ProviderOpenMeteo tags catalogs and resolved plan items.
const ProviderOpenMeteo = "open-meteo"

var (
	allModes     = []weather.TimeMode{weather.ModeCurrent, weather.ModeForecast, weather.ModeHistorical, weather.ModeClimate}
	forecastOnly = []weather.TimeMode{weather.ModeCurrent, weather.ModeForecast}
)

// seed is ordered: on equal match scores the earlier entry wins.
var seed = []weather.CapabilityVariable{
	{ID: "temperature_2m", Label: "Temperature (2 m)", Unit: "°C", Modes: allModes,
		Aliases: []string{"temperature", "temp", "air temperature", "air temp", "air_temperature", "t2m"}},
	{ID: "apparent_temperature", Label: "Apparent temperature", Unit: "°C", Modes: allModes,
		Aliases: []string{"feels like", "feels_like", "heat index", "wind chill"}},
	{ID: "dew_point_2m", Label: "Dew point (2 m)", Unit: "°C", Modes: allModes,
		Aliases: []string{"dew point", "dewpoint", "dew_point", "dew point temperature"}},
	{ID: "relative_humidity_2m", Label: "Relative humidity (2 m)", Unit: "%", Modes: allModes,
		Aliases: []string{"humidity", "relative humidity", "rh"}},
	{ID: "wind_speed_10m", Label: "Wind speed (10 m)", Unit: "km/h", Modes: allModes,
		Aliases: []string{"wind", "winds", "wind speed", "wind_speed"}},
	{ID: "wind_direction_10m", Label: "Wind direction (10 m)", Unit: "°", Modes: allModes,
		Aliases: []string{"wind direction", "wind dir", "wind_dir"}},
	{ID: "wind_gusts_10m", Label: "Wind gusts (10 m)", Unit: "km/h", Modes: allModes,
		Aliases: []string{"gusts", "gust", "wind gusts", "wind gust"}},
	{ID: "precipitation", Label: "Precipitation (rain + showers + snow)", Unit: "mm", Modes: allModes,
		Aliases: []string{"precipitation", "precip", "rainfall", "rainfall intensity"}},
	{ID: "rain", Label: "Rain", Unit: "mm", Modes: allModes,
		Aliases: []string{"rain", "liquid precipitation"}},
	{ID: "snowfall", Label: "Snowfall", Unit: "cm", Modes: allModes,
		Aliases: []string{"snow", "snowfall"}},
	{ID: "snow_depth", Label: "Snow depth", Unit: "m", Modes: allModes,
		Aliases: []string{"snow depth", "snowpack"}},
	{ID: "cloud_cover", Label: "Cloud cover total", Unit: "%", Modes: allModes,
		Aliases: []string{"cloud", "clouds", "cloud cover", "cloudiness"}},
	{ID: "shortwave_radiation", Label: "Shortwave solar radiation", Unit: "W/m²", Modes: allModes,
		Aliases: []string{"solar radiation", "solar insolation", "sunshine", "ghi"}},
	{ID: "direct_radiation", Label: "Direct solar radiation", Unit: "W/m²", Modes: allModes,
		Aliases: []string{"direct radiation", "beam radiation"}},
	{ID: "diffuse_radiation", Label: "Diffuse solar radiation", Unit: "W/m²", Modes: allModes,
		Aliases: []string{"diffuse radiation"}},
	{ID: "et0_fao_evapotranspiration", Label: "Reference evapotranspiration (ET0)", Unit: "mm", Modes: allModes,
		Aliases: []string{"evapotranspiration", "et0", "et"}},
	{ID: "pressure_msl", Label: "Sealevel pressure", Unit: "hPa", Modes: allModes,
		Aliases: []string{"pressure", "sea level pressure", "mslp", "barometric pressure"}},
	{ID: "surface_pressure", Label: "Surface pressure", Unit: "hPa", Modes: allModes,
		Aliases: []string{"surface pressure", "station pressure"}},
	{ID: "soil_temperature_0cm", Label: "Soil temperature (0 cm)", Unit: "°C", Modes: forecastOnly,
		Aliases: []string{"soil temperature", "soil temp", "soil surface temperature", "surface temperature"}},
	{ID: "soil_temperature_6cm", Label: "Soil temperature (6 cm)", Unit: "°C", Modes: forecastOnly,
		Aliases: []string{"soil temp 6cm", "soil_temperature_6cm"}},
	{ID: "soil_temperature_18cm", Label: "Soil temperature (18 cm)", Unit: "°C", Modes: forecastOnly,
		Aliases: []string{"soil temp 18cm", "soil_temperature_18cm"}},
	{ID: "soil_temperature_54cm", Label: "Soil temperature (54 cm)", Unit: "°C", Modes: forecastOnly,
		Aliases: []string{"soil temp 54cm", "soil_temperature_54cm"}},
	{ID: "soil_moisture_0_to_1cm", Label: "Soil moisture (0-1 cm)", Unit: "m³/m³", Modes: forecastOnly,
		Aliases: []string{"soil moisture", "soil water", "soil_moisture_0_1cm"}},
	{ID: "soil_moisture_1_to_3cm", Label: "Soil moisture (1-3 cm)", Unit: "m³/m³", Modes: forecastOnly,
		Aliases: []string{"soil_moisture_1_3cm"}},
	{ID: "soil_moisture_3_to_9cm", Label: "Soil moisture (3-9 cm)", Unit: "m³/m³", Modes: forecastOnly,
		Aliases: []string{"soil_moisture_3_9cm"}},
	{ID: "soil_moisture_9_to_27cm", Label: "Soil moisture (9-27 cm)", Unit: "m³/m³", Modes: forecastOnly,
		Aliases: []string{"soil_moisture_9_27cm"}},
	{ID: "soil_moisture_27_to_81cm", Label: "Soil moisture (27-81 cm)", Unit: "m³/m³", Modes: forecastOnly,
		Aliases: []string{"soil_moisture_27_81cm"}},
	{ID: "visibility", Label: "Visibility", Unit: "m", Modes: forecastOnly,
		Aliases: []string{"visibility", "fog"}},
	{ID: "uv_index", Label: "UV index", Unit: "", Modes: forecastOnly,
		Aliases: []string{"uv", "uv index", "ultraviolet"}},
	{ID: "boundary_layer_height", Label: "Boundary layer height", Unit: "m", Modes: allModes,
		Aliases: []string{"pblh", "boundary layer height", "mixing layer", "mixing height"}},
}

// Catalog returns a copy of the built-in variable catalog.
func Catalog() []weather.CapabilityVariable {
	out := make([]weather.CapabilityVariable, len(seed))
	for i, v := range seed {
		v.Modes = append([]weather.TimeMode(nil), v.Modes...)
		v.Aliases = append([]string(nil), v.Aliases...)
		out[i] = v
	}
	return out
}
