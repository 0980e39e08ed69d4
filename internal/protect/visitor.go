package protect

import (
	"errors"

	"careshield/internal/fieldcrypto"
)

// Protector walks JSON-like values (map[string]any / []any / scalars, as
// produced by encoding/json) and transforms protected string leaves. Only
// string values under protected field names are touched; everything else
// passes through unchanged.
type Protector struct {
	classifier *Classifier
	engine     *fieldcrypto.Engine
}

func NewProtector(classifier *Classifier, engine *fieldcrypto.Engine) *Protector {
	return &Protector{classifier: classifier, engine: engine}
}

// EncryptProtectedFields seals protected string values in place on the way in.
// Values that already carry an envelope are left alone so replayed payloads
// are not double-encrypted.
func (p *Protector) EncryptProtectedFields(value any) (any, error) {
	return p.walk(value, "", p.encryptLeaf)
}

// DecryptProtectedFields opens protected envelopes on the way out for
// authorized callers. A value that looks like an envelope but fails
// authentication is passed through untouched: some fields coincidentally
// match protected naming without ever having been encrypted.
func (p *Protector) DecryptProtectedFields(value any) (any, error) {
	return p.walk(value, "", p.decryptLeaf)
}

// MaskProtectedFields replaces protected values with masked forms for
// unauthorized callers. Envelopes are opened first (best effort) so the mask
// reflects the plaintext shape, never the ciphertext.
func (p *Protector) MaskProtectedFields(value any) (any, error) {
	return p.walk(value, "", p.maskLeaf)
}

type leafFn func(value string) (string, error)

// walk recurses through objects and arrays. fieldName is the key under which
// the current value sits; array elements inherit the enclosing field name so
// a protected list of strings is transformed element-wise.
func (p *Protector) walk(value any, fieldName string, fn leafFn) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			transformed, err := p.walk(child, key, fn)
			if err != nil {
				return nil, err
			}
			out[key] = transformed
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			transformed, err := p.walk(child, fieldName, fn)
			if err != nil {
				return nil, err
			}
			out[i] = transformed
		}
		return out, nil
	case string:
		if fieldName != "" && p.classifier.IsProtected(fieldName) {
			return fn(v)
		}
		return v, nil
	default:
		// numbers, bools, nulls
		return v, nil
	}
}

func (p *Protector) encryptLeaf(value string) (string, error) {
	if value == "" || fieldcrypto.LooksLikeEnvelope(value) {
		return value, nil
	}
	return p.engine.EncryptField(value)
}

func (p *Protector) decryptLeaf(value string) (string, error) {
	if !fieldcrypto.LooksLikeEnvelope(value) {
		return value, nil
	}
	plaintext, err := p.engine.DecryptField(value)
	if err != nil {
		if errors.Is(err, fieldcrypto.ErrDecryptionFailed) {
			return value, nil
		}
		return "", err
	}
	return plaintext, nil
}

func (p *Protector) maskLeaf(value string) (string, error) {
	plaintext, err := p.decryptLeaf(value)
	if err != nil {
		return "", err
	}
	return MaskValue(plaintext), nil
}
