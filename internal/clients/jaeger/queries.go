package jaeger

import (
	"net/url"
	"strconv"
	"time"
)

// reservedParams are always set by the client and cannot be overridden by
// caller-supplied parameters.
var reservedParams = []string{"service", "start"}

// ToMicros converts a timestamp to the microsecond resolution the Jaeger
// query API expects. Sub-millisecond precision is dropped so the value never
// lands after the caller's millisecond start time.
func ToMicros(t time.Time) int64 {
	return t.UnixMilli() * 1000
}

// BuildTracesParams constructs the query string for /api/traces: traces of
// service that started at or after since, plus any extra filters such as
// operation, limit or tags.
func BuildTracesParams(service string, since time.Time, extra url.Values) url.Values {
	params := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	for _, k := range reservedParams {
		params.Del(k)
	}
	params.Set("service", service)
	params.Set("start", strconv.FormatInt(ToMicros(since), 10))
	return params
}
