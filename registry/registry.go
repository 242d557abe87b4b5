// Package registry implements the persisted collection of server
// descriptors backing the gateway: validation, unique-id assignment,
// add/update/remove, and at-rest secret encryption via package vault.
package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sqlectron/sqlectron-core/apperrors"
	"github.com/sqlectron/sqlectron-core/dialect"
	"github.com/sqlectron/sqlectron-core/vault"
)

// Registry is the in-memory, disk-backed collection of server
// descriptors. It is safe for concurrent use; every mutating operation
// takes an internal lock and persists before releasing it, satisfying the
// spec's "registry-level lock" requirement for a single process.
type Registry struct {
	mu      sync.Mutex
	path    string
	servers []dialect.Descriptor
}

// Open loads (or creates) the registry document at path.
func Open(path string) (*Registry, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	return &Registry{path: path, servers: doc.Servers}, nil
}

// OpenDefault loads the registry at the spec's default location (legacy
// path if present, otherwise the platform config directory).
func OpenDefault() (*Registry, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// GetAll returns every stored descriptor, secrets as stored (ciphertext
// if Encrypted is true). The returned slice is a copy; callers may not
// mutate the registry through it.
func (r *Registry) GetAll() []dialect.Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]dialect.Descriptor, len(r.servers))
	for i, s := range r.servers {
		out[i] = s.Clone()
	}
	return out
}

// Add validates d, assigns a fresh collision-free id, encrypts its
// secrets under vaultKey, persists, and returns the stored form.
func (r *Registry) Add(d dialect.Descriptor, vaultKey string) (dialect.Descriptor, error) {
	if err := dialect.Validate(d); err != nil {
		return dialect.Descriptor{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d = d.Clone()
	d.ID = r.freshID()

	encrypted, err := encryptSecrets(d, vaultKey, nil)
	if err != nil {
		return dialect.Descriptor{}, err
	}

	r.servers = append(r.servers, encrypted)
	if err := r.persist(); err != nil {
		return dialect.Descriptor{}, err
	}

	return encrypted.Clone(), nil
}

// Update validates d, locates the existing descriptor by id, re-encrypts
// any secret that changed (preserving ciphertext for unchanged secrets),
// persists, and returns the stored form.
func (r *Registry) Update(d dialect.Descriptor, vaultKey string) (dialect.Descriptor, error) {
	if err := dialect.Validate(d); err != nil {
		return dialect.Descriptor{}, err
	}
	if d.ID == "" {
		return dialect.Descriptor{}, &apperrors.ValidationError{Field: "id", Validator: "required", Message: "update requires an existing id"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexByID(d.ID)
	if idx < 0 {
		return dialect.Descriptor{}, &apperrors.ValidationError{Field: "id", Validator: "exists", Message: fmt.Sprintf("no server with id %q", d.ID)}
	}

	existing := r.servers[idx]
	encrypted, err := encryptSecrets(d.Clone(), vaultKey, &existing)
	if err != nil {
		return dialect.Descriptor{}, err
	}

	r.servers[idx] = encrypted
	if err := r.persist(); err != nil {
		return dialect.Descriptor{}, err
	}

	return encrypted.Clone(), nil
}

// AddOrUpdate routes to Add or Update by presence of a non-empty id.
func (r *Registry) AddOrUpdate(d dialect.Descriptor, vaultKey string) (dialect.Descriptor, error) {
	if d.ID == "" {
		return r.Add(d, vaultKey)
	}
	return r.Update(d, vaultKey)
}

// RemoveByID deletes the descriptor with the given id. It is idempotent:
// removing an absent id is not an error.
func (r *Registry) RemoveByID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexByID(id)
	if idx < 0 {
		return nil
	}

	r.servers = append(r.servers[:idx], r.servers[idx+1:]...)
	return r.persist()
}

// DecryptSecrets returns a copy of d with Password and SSH.Password
// decrypted under vaultKey. It is a no-op when d.Encrypted is false.
func (r *Registry) DecryptSecrets(d dialect.Descriptor, vaultKey string) (dialect.Descriptor, error) {
	return decryptSecrets(d, vaultKey)
}

// DecryptSecretsOf is the free-function form of DecryptSecrets, usable by
// callers (e.g. package session) that hold a descriptor without a
// Registry instance at hand.
func DecryptSecretsOf(d dialect.Descriptor, vaultKey string) (dialect.Descriptor, error) {
	return decryptSecrets(d, vaultKey)
}

func decryptSecrets(d dialect.Descriptor, vaultKey string) (dialect.Descriptor, error) {
	if !d.Encrypted {
		return d.Clone(), nil
	}

	out := d.Clone()

	if out.Password != "" {
		plain, err := vault.Decrypt(out.Password, vaultKey)
		if err != nil {
			return dialect.Descriptor{}, &apperrors.AuthError{Err: err}
		}
		out.Password = plain
	}

	if out.SSH != nil && out.SSH.Password != "" {
		plain, err := vault.Decrypt(out.SSH.Password, vaultKey)
		if err != nil {
			return dialect.Descriptor{}, &apperrors.AuthError{Err: err}
		}
		out.SSH.Password = plain
	}

	out.Encrypted = false
	return out, nil
}

// encryptSecrets encrypts d's plaintext secrets under vaultKey and marks
// it Encrypted. If previous is non-nil (an Update), a secret that equals
// the previous descriptor's decrypted value is left with its existing
// ciphertext untouched, so the stored ciphertext is stable across no-op
// edits — the behavior called out as a hard requirement in the design
// notes.
func encryptSecrets(d dialect.Descriptor, vaultKey string, previous *dialect.Descriptor) (dialect.Descriptor, error) {
	var previousPlain dialect.Descriptor
	if previous != nil {
		decrypted, err := decryptSecrets(*previous, vaultKey)
		if err != nil {
			return dialect.Descriptor{}, err
		}
		previousPlain = decrypted
	}

	out := d.Clone()

	if out.Password != "" {
		if previous != nil && out.Password == previousPlain.Password {
			out.Password = previous.Password
		} else {
			ciphertext, err := vault.Encrypt(out.Password, vaultKey)
			if err != nil {
				return dialect.Descriptor{}, err
			}
			out.Password = ciphertext
		}
	}

	if out.SSH != nil && out.SSH.Password != "" {
		samePassword := previous != nil && previous.SSH != nil &&
			previousPlain.SSH != nil && out.SSH.Password == previousPlain.SSH.Password
		if samePassword {
			out.SSH.Password = previous.SSH.Password
		} else {
			ciphertext, err := vault.Encrypt(out.SSH.Password, vaultKey)
			if err != nil {
				return dialect.Descriptor{}, err
			}
			out.SSH.Password = ciphertext
		}
	}

	out.Encrypted = true
	return out, nil
}

// freshID returns a UUID guaranteed not to collide with any id currently
// in the registry.
func (r *Registry) freshID() string {
	for {
		id := uuid.New().String()
		if r.indexByID(id) < 0 {
			return id
		}
	}
}

func (r *Registry) indexByID(id string) int {
	for i, s := range r.servers {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// persist must be called with r.mu held.
func (r *Registry) persist() error {
	return writeDocument(r.path, document{Servers: r.servers})
}

// Prepare ensures every descriptor has an id and a defined SSL flag, and
// encrypts any descriptor whose Encrypted flag is unset, persisting the
// result. Both Prepare and PrepareSync exist per the spec's external
// interface contract; Go has no separate async file-I/O path, so they are
// identical and both produce byte-identical JSON.
func (r *Registry) Prepare(vaultKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for i, s := range r.servers {
		if s.ID == "" {
			s.ID = r.freshID()
			changed = true
		}
		if !s.Encrypted {
			encrypted, err := encryptSecrets(s, vaultKey, nil)
			if err != nil {
				return err
			}
			s = encrypted
			changed = true
		}
		r.servers[i] = s
	}

	if changed {
		return r.persist()
	}
	return nil
}

// PrepareSync is the synchronous variant of Prepare; see its doc comment.
func (r *Registry) PrepareSync(vaultKey string) error {
	return r.Prepare(vaultKey)
}
