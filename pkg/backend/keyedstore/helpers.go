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

package keyedstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
)

// buildKeyConditionExpression translates the backend-agnostic Query
// DSL into a DynamoDB KeyConditionExpression. This is the one place
// the keyed store's "JSON DSL" (spec.md §4.C2) differs from the
// document database's parameterized query.
func buildKeyConditionExpression(q backend.Query) (string, map[string]string, map[string]ddbtypes.AttributeValue, error) {
	hashName := q.HashKey.Field
	if hashName == "" {
		hashName = "PK"
	}
	names := map[string]string{"#hk": hashName}
	hashVal, err := attributevalue.Marshal(q.HashKey.Value)
	if err != nil {
		return "", nil, nil, err
	}
	values := map[string]ddbtypes.AttributeValue{":hk": hashVal}
	expr := "#hk = :hk"

	if q.RangeKey != nil {
		names["#rk"] = q.RangeKey.Field
		switch q.RangeKey.Op {
		case backend.OpStartsWith:
			rv, err := attributevalue.Marshal(q.RangeKey.Value)
			if err != nil {
				return "", nil, nil, err
			}
			values[":rk"] = rv
			expr += " AND begins_with(#rk, :rk)"
		case backend.OpBetween:
			rv1, err := attributevalue.Marshal(q.RangeKey.Value)
			if err != nil {
				return "", nil, nil, err
			}
			rv2, err := attributevalue.Marshal(q.RangeKey.Value2)
			if err != nil {
				return "", nil, nil, err
			}
			values[":rk1"] = rv1
			values[":rk2"] = rv2
			expr += " AND #rk BETWEEN :rk1 AND :rk2"
		case backend.OpGte:
			rv, err := attributevalue.Marshal(q.RangeKey.Value)
			if err != nil {
				return "", nil, nil, err
			}
			values[":rk"] = rv
			expr += " AND #rk >= :rk"
		case backend.OpLte:
			rv, err := attributevalue.Marshal(q.RangeKey.Value)
			if err != nil {
				return "", nil, nil, err
			}
			values[":rk"] = rv
			expr += " AND #rk <= :rk"
		default:
			rv, err := attributevalue.Marshal(q.RangeKey.Value)
			if err != nil {
				return "", nil, nil, err
			}
			values[":rk"] = rv
			expr += " AND #rk = :rk"
		}
	}
	return expr, names, values, nil
}

// encodeCursor/decodeCursor turn DynamoDB's LastEvaluatedKey into the
// opaque base64 continuation token pkg/query exposes to HTTP callers.
func encodeCursor(lastKey map[string]ddbtypes.AttributeValue) (string, error) {
	var plain map[string]interface{}
	if err := attributevalue.UnmarshalMap(lastKey, &plain); err != nil {
		return "", err
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func decodeCursor(cursor string) (map[string]ddbtypes.AttributeValue, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	var plain map[string]interface{}
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	return attributevalue.MarshalMap(plain)
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// currentECSTaskARN reads the running container's own task ARN from
// the ECS task metadata endpoint (ECS_CONTAINER_METADATA_URI_V4).
func currentECSTaskARN(ctx context.Context) (string, error) {
	uri := os.Getenv("ECS_CONTAINER_METADATA_URI_V4")
	if uri == "" {
		return "", fmt.Errorf("ECS_CONTAINER_METADATA_URI_V4 is not set; not running inside an ECS task")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+"/task", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var meta struct {
		TaskARN string `json:"TaskARN"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", err
	}
	if meta.TaskARN == "" {
		return "", fmt.Errorf("ECS task metadata response did not include TaskARN")
	}
	return meta.TaskARN, nil
}
