package dialect

import (
	"fmt"
	"strings"

	"github.com/sqlectron/sqlectron-core/apperrors"
)

// Validate applies the field-level checks the spec requires on add/update:
// required fields, the host/port-xor-socketPath address group, and the
// nested SSH schema when present. A dialect's DisabledFeatures list
// suppresses the fields it names before any check against them runs, the
// same way the teacher's adapters each declare which checks don't apply.
func Validate(d Descriptor) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return &apperrors.ValidationError{Field: "name", Validator: "required", Message: "name must not be empty"}
	}

	client := Key(strings.TrimSpace(string(d.Client)))
	if client == "" {
		return &apperrors.ValidationError{Field: "client", Validator: "required", Message: "client must not be empty"}
	}
	if !IsSupported(client) {
		return &apperrors.ValidationError{Field: "client", Validator: "oneOf", Message: fmt.Sprintf("unsupported client %q", client)}
	}

	if err := validateAddress(d, client); err != nil {
		return err
	}

	if err := validateSSH(d, client); err != nil {
		return err
	}

	return nil
}

// validateAddress enforces "(host ∧ port) ⊻ socketPath": reject both
// address forms set, reject neither set, and reject host without port or
// vice versa, unless the dialect has disabled one of the fields (e.g.
// SQLite disables server:host/server:port and addresses purely by path,
// carried in Database).
func validateAddress(d Descriptor, client Key) error {
	hostDisabled := FeatureDisabled(client, "server:host")
	socketDisabled := FeatureDisabled(client, "server:socketPath")

	if hostDisabled {
		// Dialects like SQLite have no network address at all; nothing
		// further to validate here.
		return nil
	}

	hasHost := d.Host != ""
	hasPort := d.Port != 0
	hasSocket := d.SocketPath != ""

	if socketDisabled && hasSocket {
		return &apperrors.ValidationError{Field: "socketPath", Validator: "disabled", Message: "socketPath is not supported by this client"}
	}

	if hasHost != hasPort {
		return &apperrors.ValidationError{Field: "host", Validator: "pair", Message: "host and port must be set together"}
	}

	hostGroup := hasHost && hasPort

	switch {
	case hostGroup && hasSocket:
		return &apperrors.ValidationError{Field: "socketPath", Validator: "xor", Message: "exactly one of (host, port) or socketPath must be set"}
	case !hostGroup && !hasSocket:
		return &apperrors.ValidationError{Field: "host", Validator: "xor", Message: "exactly one of (host, port) or socketPath must be set"}
	}

	return nil
}

// validateSSH checks the nested SSH tunnel schema when present: host
// length, port as a 1-5 digit value, required user, and at least one of
// password/privateKey.
func validateSSH(d Descriptor, client Key) error {
	if d.SSH == nil {
		return nil
	}

	if FeatureDisabled(client, "server:ssh") {
		return &apperrors.ValidationError{Field: "ssh", Validator: "disabled", Message: "SSH tunneling is not supported by this client"}
	}

	s := d.SSH

	if len(strings.TrimSpace(s.Host)) < 1 {
		return &apperrors.ValidationError{Field: "ssh.host", Validator: "required", Message: "ssh.host must not be empty"}
	}

	portStr := fmt.Sprintf("%d", s.Port)
	if s.Port <= 0 || len(portStr) < 1 || len(portStr) > 5 {
		return &apperrors.ValidationError{Field: "ssh.port", Validator: "range", Message: "ssh.port must be a positive integer of 1 to 5 digits"}
	}

	if len(strings.TrimSpace(s.User)) < 1 {
		return &apperrors.ValidationError{Field: "ssh.user", Validator: "required", Message: "ssh.user must not be empty"}
	}

	if s.Password == "" && s.PrivateKey == "" {
		return &apperrors.ValidationError{Field: "ssh.password", Validator: "atLeastOne", Message: "at least one of ssh.password or ssh.privateKey is required"}
	}

	return nil
}
