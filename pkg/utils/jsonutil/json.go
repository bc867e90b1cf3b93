/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION & AFFILIATES. All rights reserved.
 * See LICENSE for license information.
 */

package jsonutil

import (
	"bytes"
	"encoding/json"
)

// Unmarshal parses the JSON-encoded data and stores the result in the value pointed to by v.
func Unmarshal(data []byte, v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(data))
	if err := d.Decode(v); err != nil {
		return err
	}
	return nil
}

// MarshalSilently converts the given value to its JSON representation.
func MarshalSilently(v interface{}) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// CanonicalMetadata renders a metadata map as deterministic JSON. Keys are
// emitted in sorted order, so equal maps always produce equal bytes; this is
// what makes metadata usable in the upload fingerprint. A nil map renders as
// an empty object.
func CanonicalMetadata(meta map[string]string) string {
	if meta == nil {
		meta = map[string]string{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}
