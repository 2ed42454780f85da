// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

package session

import jsoniter "github.com/json-iterator/go"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func marshalTuple(name string, enabled bool) ([]byte, error) {
	return jsonAPI.Marshal([]interface{}{name, enabled})
}

func unmarshalTuple(b []byte) (string, bool, error) {
	var tuple [2]interface{}
	if err := jsonAPI.Unmarshal(b, &tuple); err != nil {
		return "", false, err
	}
	name, _ := tuple[0].(string)
	enabled, _ := tuple[1].(bool)
	return name, enabled, nil
}
