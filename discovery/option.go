package discovery

// Option is the abbreviated key of a discovery option.
type Option string

// Options for origin
const (
	Name       Option = "name"
	SWVersion  Option = "sw"
	SupportURL Option = "url"
)

// Options for device
const (
	ConfigurationURL Option = "cu"
	Identifiers      Option = "ids"
	Manufacturer     Option = "mf"
	Model            Option = "mdl"
)

// Options for components
const (
	Availability              Option = "avty"
	AvailabilityMode          Option = "avty_mode"
	AvailabilityTopic         Option = "avty_t"
	AvailabilityTemplate      Option = "avty_tpl"
	CommandTopic              Option = "cmd_t"
	DeviceClass               Option = "dev_cla"
	EnabledByDefault          Option = "en"
	EntityCategory            Option = "ent_cat"
	ExpireAfter               Option = "exp_aft"
	Icon                      Option = "ic"
	JSONAttributesTopic       Option = "json_attr_t"
	JSONAttributesTemplate    Option = "json_attr_tpl"
	Platform                  Option = "p"
	PayloadAvailable          Option = "pl_avail"
	PayloadNotAvailable       Option = "pl_not_avail"
	PayloadPress              Option = "pl_prs"
	StateClass                Option = "stat_cla"
	StateTopic                Option = "stat_t"
	SuggestedDisplayPrecision Option = "sug_dsp_prc"
	Topic                     Option = "t"
	UniqueID                  Option = "uniq_id"
	UnitOfMeasurement         Option = "unit_of_meas"
	ValueTemplate             Option = "val_tpl"
)
