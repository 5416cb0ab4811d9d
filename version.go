package wsprofile

// ApplyVersion selects the protocol version and gates the MQTT 5 properties.
// The property values are kept when the gate closes.
func ApplyVersion(d Draft, v ProtocolVersion) Draft {
	d.advanced.Version = v
	d.advanced.Properties.Enabled = v == MQTT5
	return d
}
