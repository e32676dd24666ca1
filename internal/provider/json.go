package provider

import (
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

// Provider payloads mix strings and numbers for the same field across
// versions, so every accessor tries an alias chain and both scalar kinds.

func stringField(v *fastjson.Value, keys ...string) string {
	if v == nil {
		return ""
	}

	for _, key := range keys {
		f := v.Get(key)
		if f == nil {
			continue
		}

		switch f.Type() {
		case fastjson.TypeString:
			s := strings.Trim(f.String(), `"`)
			if len(s) > 0 {
				return s
			}
		case fastjson.TypeNumber:
			n, err := f.Int64()
			if err == nil {
				return strconv.FormatInt(n, 10)
			}
		}
	}

	return ""
}

func int64Field(v *fastjson.Value, keys ...string) int64 {
	if v == nil {
		return 0
	}

	for _, key := range keys {
		f := v.Get(key)
		if f == nil {
			continue
		}

		if n, err := f.Int64(); err == nil && n > 0 {
			return n
		}

		if f.Type() == fastjson.TypeString {
			s := strings.Trim(f.String(), `"`)
			if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
				return n
			}
		}
	}

	return 0
}

func boolField(v *fastjson.Value, key string) *bool {
	if v == nil {
		return nil
	}

	f := v.Get(key)
	if f == nil {
		return nil
	}

	b, err := f.Bool()
	if err != nil {
		return nil
	}

	return &b
}

func intField(v *fastjson.Value, key string) *int {
	if v == nil {
		return nil
	}

	f := v.Get(key)
	if f == nil {
		return nil
	}

	n, err := f.Int()
	if err != nil {
		return nil
	}

	return &n
}
