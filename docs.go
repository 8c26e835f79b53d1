// Package cfstats polls the analytics of Cloudflare zones and provides them
// to the MQTT broker as Home Assistant sensors.
//
// Configuration can be loaded from multiple YAML files, including from directories.
// If no config file is specified, the default path(s) will be determined by the first
// defined value of $CFSTATS_CONFIG_PATH, $XDG_CONFIG_HOME/cfstats.yaml, or $HOME/.config/cfstats.yaml.
// In the case of $CFSTATS_CONFIG_PATH, the value may be a comma-separated list of paths. If none of
// these files exist, the default configuration will be used, which looks for the following
// environment variables:
//
//   - broker:    $CFSTATS_BROKER_ADDRESS
//   - username:  $CFSTATS_BROKER_USERNAME
//   - password:  $CFSTATS_BROKER_PASSWORD
//   - zone id:   $CFSTATS_ZONE_ID
//   - api_token: $CFSTATS_API_TOKEN
//
// Full documentation is available at:
// https://pkg.go.dev/github.com/lone-faerie/cfstats
package cfstats
