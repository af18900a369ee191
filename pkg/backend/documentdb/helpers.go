/*
Copyright 2024 The InfraWeave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package documentdb

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
)

// buildFilter is the document-database side of the Query DSL split
// spec.md §4.C2 calls for: the keyed store compiles a Query into a
// DynamoDB KeyConditionExpression, this compiles the same Query into
// a bson.M filter.
func buildFilter(q backend.Query) (bson.M, error) {
	hashField := q.HashKey.Field
	if hashField == "" {
		hashField = "PK"
	}
	filter := bson.M{hashField: q.HashKey.Value}

	if q.RangeKey != nil {
		field := q.RangeKey.Field
		switch q.RangeKey.Op {
		case backend.OpStartsWith:
			prefix := fmt.Sprint(q.RangeKey.Value)
			filter[field] = primitive.Regex{Pattern: "^" + regexEscape(prefix), Options: ""}
		case backend.OpBetween:
			filter[field] = bson.M{"$gte": q.RangeKey.Value, "$lte": q.RangeKey.Value2}
		case backend.OpGte:
			filter[field] = bson.M{"$gte": q.RangeKey.Value}
		case backend.OpLte:
			filter[field] = bson.M{"$lte": q.RangeKey.Value}
		default:
			filter[field] = q.RangeKey.Value
		}
	}
	return filter, nil
}

func regexEscape(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '.', '*', '+', '?', '(', ')', '[', ']', '{', '}', '^', '$', '|', '\\':
			buf.WriteByte('\\')
		}
		buf.WriteRune(r)
	}
	return buf.String()
}

func encodeSkipCursor(skip int) string {
	return base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(skip)))
}

func decodeSkipCursor(cursor string) (int, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(raw))
}

// splitLogLines turns a raw log chunk into LogLine records, capping at
// limit lines when limit > 0. Timestamps are unavailable at this
// granularity for the self-hosted backend, so each line shares the
// read's wall-clock time rather than a per-line one CloudWatch tracks.
func splitLogLines(data []byte, limit int) []backend.LogLine {
	if len(data) == 0 {
		return nil
	}
	raw := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	now := time.Now()
	var lines []backend.LogLine
	for _, l := range raw {
		lines = append(lines, backend.LogLine{Timestamp: now, Message: string(l)})
		if limit > 0 && len(lines) >= limit {
			break
		}
	}
	return lines
}
