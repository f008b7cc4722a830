package models

import dErrors "mandate/pkg/domain-errors"

var (
	ErrDuplicateRecord = dErrors.Sentinel("duplicate_record", "duplicate record")
	ErrRecordNotFound  = dErrors.Sentinel("record_not_found", "record not found")
	ErrFieldTooLong    = dErrors.Sentinel("field_too_long", "field too long")
	ErrInvalidEncoding = dErrors.Sentinel("invalid_encoding", "invalid encoding")
	ErrUnknownRule     = dErrors.Sentinel("unknown_rule", "unknown rule")
	ErrBindingMismatch = dErrors.Sentinel("binding_mismatch", "binding mismatch")
)
