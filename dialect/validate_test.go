package dialect

import (
	"errors"
	"testing"

	"github.com/sqlectron/sqlectron-core/apperrors"
)

func validDescriptor() Descriptor {
	return Descriptor{
		Name:   "local pg",
		Client: PostgreSQL,
		Host:   "localhost",
		Port:   5432,
		SSL:    false,
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validDescriptor()); err != nil {
		t.Fatalf("expected a valid descriptor to pass, got %v", err)
	}
}

func TestValidate_RequiresName(t *testing.T) {
	d := validDescriptor()
	d.Name = "   "
	assertValidationField(t, Validate(d), "name")
}

func TestValidate_RequiresKnownClient(t *testing.T) {
	d := validDescriptor()
	d.Client = "notadatabase"
	assertValidationField(t, Validate(d), "client")
}

func TestValidate_AddressXor(t *testing.T) {
	cases := []struct {
		name string
		d    func(Descriptor) Descriptor
	}{
		{"neither set", func(d Descriptor) Descriptor {
			d.Host, d.Port, d.SocketPath = "", 0, ""
			return d
		}},
		{"both set", func(d Descriptor) Descriptor {
			d.SocketPath = "/tmp/pg.sock"
			return d
		}},
		{"host without port", func(d Descriptor) Descriptor {
			d.Port = 0
			return d
		}},
		{"port without host", func(d Descriptor) Descriptor {
			d.Host = ""
			return d
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.d(validDescriptor())
			if err := Validate(d); err == nil {
				t.Error("expected an address validation error")
			}
		})
	}
}

func TestValidate_SQLiteSkipsAddressValidation(t *testing.T) {
	d := Descriptor{
		Name:     "local file",
		Client:   SQLite,
		Database: "/tmp/test.sqlite",
	}
	if err := Validate(d); err != nil {
		t.Fatalf("expected SQLite descriptor without host/port/socket to pass, got %v", err)
	}
}

func TestValidate_SSHSchema(t *testing.T) {
	base := validDescriptor()

	t.Run("missing both secrets", func(t *testing.T) {
		d := base
		d.SSH = &SSHDescriptor{Host: "bastion", Port: 22, User: "deploy"}
		assertValidationField(t, Validate(d), "ssh.password")
	})

	t.Run("missing user", func(t *testing.T) {
		d := base
		d.SSH = &SSHDescriptor{Host: "bastion", Port: 22, Password: "p"}
		assertValidationField(t, Validate(d), "ssh.user")
	})

	t.Run("port too large", func(t *testing.T) {
		d := base
		d.SSH = &SSHDescriptor{Host: "bastion", Port: 999999, User: "deploy", Password: "p"}
		assertValidationField(t, Validate(d), "ssh.port")
	})

	t.Run("valid with password", func(t *testing.T) {
		d := base
		d.SSH = &SSHDescriptor{Host: "bastion", Port: 22, User: "deploy", Password: "p"}
		if err := Validate(d); err != nil {
			t.Fatalf("expected valid SSH block to pass, got %v", err)
		}
	})

	t.Run("valid with private key", func(t *testing.T) {
		d := base
		d.SSH = &SSHDescriptor{Host: "bastion", Port: 22, User: "deploy", PrivateKey: "----BEGIN...", Passphrase: true}
		if err := Validate(d); err != nil {
			t.Fatalf("expected valid SSH block to pass, got %v", err)
		}
	})
}

func assertValidationField(t *testing.T, err error, wantField string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *apperrors.ValidationError, got %T: %v", err, err)
	}
	if ve.Field != wantField {
		t.Errorf("expected error on field %q, got %q (%v)", wantField, ve.Field, ve)
	}
}
