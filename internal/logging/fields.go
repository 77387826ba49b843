package logging

// Standard structured logging keys.
const (
	FieldComponent    = "component"
	FieldDevice       = "device"
	FieldProbeID      = "probe_id"
	FieldStep         = "step"
	FieldEventType    = "event_type"
	FieldErrorHint    = "error_hint"
	FieldImpact       = "impact"
	FieldDecisionType = "decision_type"
	FieldProfile      = "profile"
	FieldMediumType   = "medium_type"
	FieldSCSICode     = "scsi_code"
	FieldOpcode       = "opcode"
)
