// Package plist wraps github.com/groob/plist, the binary property-list
// codec used inside AirPlay RTSP bodies and the DataStream payload
// carrier. The upstream library is treated as a black box (spec §2,
// component C4); this package only adds the small set of helpers the
// rest of the module needs.
package plist

import (
	"bytes"

	gplist "github.com/groob/plist"
)

// Marshal renders v as a binary property list.
func Marshal(v interface{}) ([]byte, error) {
	return gplist.MarshalIndent(v, "")
}

// Unmarshal parses a binary (or XML) property list into v.
func Unmarshal(data []byte, v interface{}) error {
	return gplist.Unmarshal(data, v)
}

// Encode writes v to w as a binary property list using a streaming
// encoder, matching the pattern the teacher repo used for RTSP request
// bodies.
func Encode(w *bytes.Buffer, v interface{}) error {
	enc := gplist.NewEncoder(w)
	return enc.Encode(v)
}

// ParseMap decodes data into a generic string-keyed map, the shape
// most AirPlay plist bodies take.
func ParseMap(data []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := gplist.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
