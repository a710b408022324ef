package component

// The wire protocol uses short component tokens in topic segments
// (farm/esp32-A1/sensor/temperature) while the catalog stores longer
// hardware identifiers (dht11_sensor_temperature). This table is the
// single source of truth for the mapping; the reverse direction is
// derived from it so the two can never drift.
var tokenToIdentifier = map[string]string{
	// Sensors
	"temperature": "dht11_sensor_temperature",
	"humidity":    "dht11_sensor_humidity",
	"water_temp":  "ds18b20_sensor",
	"water_level": "water_level_sensor",
	"light_level": "ldr_sensor",
	"motion":      "pir_sensor",

	// Actuators
	"light":  "lighting_system",
	"fan1":   "ventilation_fan",
	"pump":   "water_pump",
	"feeder": "automatic_feeder",
	"servo":  "gate_servo",
}

var identifierToToken = func() map[string]string {
	m := make(map[string]string, len(tokenToIdentifier))
	for token, identifier := range tokenToIdentifier {
		m[identifier] = token
	}
	return m
}()

// CatalogIdentifier maps a wire token to its catalog identifier.
// Unknown tokens pass through unchanged so component types added to
// the catalog under their wire name keep working without a table edit.
func CatalogIdentifier(token string) string {
	if identifier, ok := tokenToIdentifier[token]; ok {
		return identifier
	}
	return token
}

// WireToken maps a catalog identifier back to its wire token.
// Unknown identifiers pass through unchanged, mirroring CatalogIdentifier.
func WireToken(identifier string) string {
	if token, ok := identifierToToken[identifier]; ok {
		return token
	}
	return identifier
}

// IsServoToken reports whether a wire token names an angular actuator.
// Commands to these require an integer angle in [0, 180].
func IsServoToken(token string) bool {
	return token == "servo"
}
