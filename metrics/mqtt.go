package metrics

import (
	"fmt"

	"github.com/lone-faerie/cfstats/discovery"
	"github.com/lone-faerie/cfstats/discovery/icon"
	"github.com/lone-faerie/cfstats/sensor"
)

// availabilityTemplate reads the state of topic from the bridge's
// availability map, falling back to the plain LWT payload.
func availabilityTemplate(topic string) string {
	return fmt.Sprintf(
		"{{ iif(value_json[%q]|default, 'online', 'offline') if value_json is defined else value }}",
		topic,
	)
}

// keyTemplate reports a sensor offline while its value in the state payload
// is null.
func keyTemplate(key string) string {
	return fmt.Sprintf("{{ iif(value_json[%q] is none, 'offline', 'online') }}", key)
}

func valueTemplate(key string) string {
	return fmt.Sprintf("{{ value_json[%q] }}", key)
}

// Discover adds a sensor component for each definition of the zone and a
// button to refresh the zone.
func (z *Zone) Discover(d *discovery.Discovery) {
	avail := availabilityTemplate(z.topic)
	for i := range z.defs {
		def := &z.defs[i]
		id := sensor.ID(z.id, def.Key)
		cmp := discovery.Component{
			discovery.Platform: discovery.Sensor,
			discovery.Name:     def.Name,
			discovery.Availability: []discovery.Component{
				{
					discovery.Topic:         d.AvailabilityTopic,
					discovery.ValueTemplate: avail,
				},
				{
					discovery.Topic:         z.topic,
					discovery.ValueTemplate: keyTemplate(def.Key),
				},
			},
			discovery.AvailabilityMode: "all",
			discovery.StateTopic:       z.topic,
			discovery.ValueTemplate:    valueTemplate(def.Key),
			discovery.UniqueID:         id,
		}
		if def.Unit != "" {
			cmp[discovery.UnitOfMeasurement] = def.Unit
		}
		if def.DeviceClass != "" {
			cmp[discovery.DeviceClass] = def.DeviceClass
		}
		if def.StateClass != "" {
			cmp[discovery.StateClass] = def.StateClass
		}
		if def.Icon != "" {
			cmp[discovery.Icon] = def.Icon
		}
		if def.Category != "" {
			cmp[discovery.EntityCategory] = def.Category
		}
		if def.Bandwidth {
			cmp[discovery.SuggestedDisplayPrecision] = 2
		}
		if !def.Enabled {
			cmp[discovery.EnabledByDefault] = false
		}
		d.Components[id] = cmp
	}

	id := sensor.ID(z.id, "refresh")
	d.Components[id] = discovery.Component{
		discovery.Platform:             discovery.Button,
		discovery.Name:                 "Refresh",
		discovery.Icon:                 icon.Refresh,
		discovery.EntityCategory:       discovery.Diagnostic,
		discovery.AvailabilityTopic:    d.AvailabilityTopic,
		discovery.AvailabilityTemplate: "{{ iif(value == 'offline', value, 'online') }}",
		discovery.CommandTopic:         z.topic + "/update",
		discovery.UniqueID:             id,
	}
}
