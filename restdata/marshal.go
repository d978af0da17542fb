// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"reflect"
	"strings"

	"github.com/ugorji/go/codec"
)

// JSONMediaType is the media type of every request and response
// body exchanged with the JSON parts of the API.
const JSONMediaType = "application/json"

// jsonHandle returns a new codec handle configured for the API's
// JSON.  Untyped objects decode as map[string]interface{} rather
// than the codec's default map[interface{}]interface{}, so that they
// can be re-encoded and compared against parsed JSON.
func jsonHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}

// IsJSON decides whether a Content-Type header value names JSON.  An
// empty content type is accepted, since the API occasionally omits
// it on small responses.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/json", "text/json":
		return true
	}
	return strings.HasSuffix(mediaType, "+json")
}

// Decode tries to decode a restdata object from a reader, such as an
// HTTP response.  out must be a pointer type.  If out already points
// at a populated value, fields present in the input overwrite the
// corresponding fields and all others are left alone.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if !IsJSON(contentType) {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return err
		}
		return ErrUnsupportedMediaType{Type: mediaType}
	}
	decoder := codec.NewDecoder(r, jsonHandle())
	return decoder.Decode(out)
}

// DecodeBytes decodes a complete JSON document held in memory.
func DecodeBytes(b []byte, out interface{}) error {
	decoder := codec.NewDecoderBytes(b, jsonHandle())
	return decoder.Decode(out)
}

// Encode writes the JSON representation of v to w.
func Encode(w io.Writer, v interface{}) error {
	encoder := codec.NewEncoder(w, jsonHandle())
	return encoder.Encode(v)
}

// EncodeIndent writes an indented JSON representation of v to w,
// followed by a newline.  This is meant for human consumption.
func EncodeIndent(w io.Writer, v interface{}) error {
	var compact []byte
	encoder := codec.NewEncoderBytes(&compact, jsonHandle())
	if err := encoder.Encode(v); err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}
