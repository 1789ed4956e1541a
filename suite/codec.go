package suite

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Wire keys of the serialized stage object. All binary fields are base64
// encoded; the handler id travels as its symbolic name; numeric parameters
// are flattened into the same object. json.Marshal emits map keys sorted, so
// Encode is canonical: equal chains serialize to equal strings, which the
// shared-suite dedup stores rely on.
const (
	keyHandler  = "handler_id"
	keyPassword = "password"
	keySalt     = "salt"
	keyPrefix   = "prefix"
	keySuffix   = "suffix"
	keyInfix    = "infix"
)

// Encode serializes a chain to its portable string form.
func Encode(c Chain) (string, error) {
	if c == nil {
		return "", ErrEmptyChain
	}
	stages := make([]map[string]any, len(c))
	for i, st := range c {
		obj := map[string]any{keyHandler: st.Handler}
		putBytes(obj, keyPassword, st.Password)
		putBytes(obj, keySalt, st.Salt)
		putBytes(obj, keyPrefix, st.Prefix)
		putBytes(obj, keySuffix, st.Suffix)
		putBytes(obj, keyInfix, st.Infix)
		for k, v := range st.Params {
			obj[k] = v
		}
		stages[i] = obj
	}
	out, err := json.Marshal(stages)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Decode is the inverse of Encode. Missing optional keys yield zero fields;
// unknown keys that are not numeric are ignored.
func Decode(s string) (Chain, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var stages []map[string]any
	if err := dec.Decode(&stages); err != nil {
		return nil, fmt.Errorf("suite decode: %w", err)
	}

	chain := make(Chain, len(stages))
	for i, obj := range stages {
		var st Stage
		for k, v := range obj {
			switch k {
			case keyHandler:
				name, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("suite decode: stage %d: handler_id is not a string", i)
				}
				st.Handler = name
			case keyPassword, keySalt, keyPrefix, keySuffix, keyInfix:
				enc, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("suite decode: stage %d: %s is not a string", i, k)
				}
				raw, err := base64.StdEncoding.DecodeString(enc)
				if err != nil {
					return nil, fmt.Errorf("suite decode: stage %d: %s: %w", i, k, err)
				}
				switch k {
				case keyPassword:
					st.Password = raw
				case keySalt:
					st.Salt = raw
				case keyPrefix:
					st.Prefix = raw
				case keySuffix:
					st.Suffix = raw
				case keyInfix:
					st.Infix = raw
				}
			default:
				num, ok := v.(json.Number)
				if !ok {
					continue
				}
				n, err := num.Int64()
				if err != nil {
					return nil, fmt.Errorf("suite decode: stage %d: %s: %w", i, k, err)
				}
				if st.Params == nil {
					st.Params = map[string]int{}
				}
				st.Params[k] = int(n)
			}
		}
		if st.Handler == "" {
			return nil, fmt.Errorf("suite decode: stage %d: missing handler_id", i)
		}
		chain[i] = st
	}
	return chain, nil
}

func putBytes(obj map[string]any, key string, b []byte) {
	if len(b) == 0 {
		return
	}
	obj[key] = base64.StdEncoding.EncodeToString(b)
}
