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
	"encoding/base64"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
)

func TestDocumentDB(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "documentdb helpers suite")
}

var _ = Describe("buildFilter", func() {
	It("defaults the hash field to PK", func() {
		q := backend.Query{HashKey: backend.Condition{Value: "dep#proj#eu-west-1"}}
		filter, err := buildFilter(q)
		Expect(err).ToNot(HaveOccurred())
		Expect(filter).To(Equal(bson.M{"PK": "dep#proj#eu-west-1"}))
	})

	It("compiles a starts_with range condition into an anchored regex", func() {
		q := backend.Query{HashKey: backend.Condition{Field: "PK", Value: "mod#vpc"}}.
			WithRangeStartsWith("SK", "v1.")
		filter, err := buildFilter(q)
		Expect(err).ToNot(HaveOccurred())
		Expect(filter["SK"]).To(Equal(primitive.Regex{Pattern: "^v1\\.", Options: ""}))
	})

	It("compiles a between range condition into $gte/$lte", func() {
		q := backend.Query{HashKey: backend.Condition{Field: "PK", Value: "mod#vpc"}}.
			WithRangeBetween("SK", 100, 200)
		filter, err := buildFilter(q)
		Expect(err).ToNot(HaveOccurred())
		Expect(filter["SK"]).To(Equal(bson.M{"$gte": 100, "$lte": 200}))
	})

	It("compiles gte and lte range conditions independently", func() {
		gte, err := buildFilter(backend.Query{
			HashKey:  backend.Condition{Field: "PK", Value: "x"},
			RangeKey: &backend.Condition{Field: "SK", Op: backend.OpGte, Value: 5},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(gte["SK"]).To(Equal(bson.M{"$gte": 5}))

		lte, err := buildFilter(backend.Query{
			HashKey:  backend.Condition{Field: "PK", Value: "x"},
			RangeKey: &backend.Condition{Field: "SK", Op: backend.OpLte, Value: 5},
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(lte["SK"]).To(Equal(bson.M{"$lte": 5}))
	})
})

var _ = Describe("regexEscape", func() {
	It("escapes every regex metacharacter", func() {
		Expect(regexEscape("a.b*c+d?e(f)g[h]i{j}k^l$m|n\\o")).To(
			Equal(`a\.b\*c\+d\?e\(f\)g\[h\]i\{j\}k\^l\$m\|n\\o`))
	})

	It("passes plain alphanumerics through untouched", func() {
		Expect(regexEscape("s3bucket1")).To(Equal("s3bucket1"))
	})
})

var _ = Describe("skip cursor encoding", func() {
	It("round-trips through encodeSkipCursor and decodeSkipCursor", func() {
		cursor := encodeSkipCursor(42)
		got, err := decodeSkipCursor(cursor)
		Expect(err).ToNot(HaveOccurred())
		Expect(got).To(Equal(42))
	})

	It("rejects a cursor that isn't valid base64", func() {
		_, err := decodeSkipCursor("not-valid-base64!!")
		Expect(err).To(HaveOccurred())
	})

	It("rejects a cursor that decodes to a non-integer", func() {
		notANumber := base64.URLEncoding.EncodeToString([]byte("not-a-number"))
		_, err := decodeSkipCursor(notANumber)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("splitLogLines", func() {
	It("returns nil for empty input", func() {
		Expect(splitLogLines(nil, 0)).To(BeNil())
	})

	It("splits on newlines and trims a trailing blank line", func() {
		lines := splitLogLines([]byte("line one\nline two\nline three\n"), 0)
		Expect(lines).To(HaveLen(3))
		Expect(lines[0].Message).To(Equal("line one"))
		Expect(lines[2].Message).To(Equal("line three"))
	})

	It("caps output at limit lines", func() {
		lines := splitLogLines([]byte("a\nb\nc\nd\n"), 2)
		Expect(lines).To(HaveLen(2))
		Expect(lines[0].Message).To(Equal("a"))
		Expect(lines[1].Message).To(Equal("b"))
	})
})
