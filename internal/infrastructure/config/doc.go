// Package config loads and validates the FarmHub Core configuration.
//
// Settings come from a YAML file, then FARMHUB_* environment variables
// override individual values. Validation runs once at startup and the
// process refuses to boot on a bad config rather than limping along:
// a missing database path, a multi-segment MQTT namespace, or a short
// JWT secret are all fatal.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.MQTT.Namespace)
//
// Secrets (the JWT secret, the admin password, broker and InfluxDB
// credentials) belong in environment variables, not in the YAML file,
// which may end up in version control on a site install.
package config
