package advisor

import "encoding/json"

// Request holds optional evaluation inputs. Unset fields are resolved from the
// latest sensor reading, current weather, hard defaults or the clock.
// Keys match the device payload and are case-insensitive, so
// "soil_moisture_shallow" or "hour" work too; "temperature" is accepted as an
// alias of Atmospheric_Temp.
type Request struct {
	SoilMoistureShallow *float64 `json:"Soil_Moisture_Shallow,omitempty"`
	SoilMoistureDeep    *float64 `json:"Soil_Moisture_Deep,omitempty"`
	Temperature         *float64 `json:"Atmospheric_Temp,omitempty"`
	Humidity            *float64 `json:"Humidity,omitempty"`
	Rainfall            *float64 `json:"Rainfall,omitempty"`
	Hour                *int     `json:"Hour,omitempty"`
	Month               *int     `json:"Month,omitempty"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Request(p)

	if r.Temperature == nil {
		var alias struct {
			Temperature *float64 `json:"temperature"`
		}
		if err := json.Unmarshal(data, &alias); err != nil {
			return err
		}
		r.Temperature = alias.Temperature
	}
	return nil
}
