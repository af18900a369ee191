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

package catalog

import (
	"sort"

	"github.com/aryann/difflib"

	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// flattenTfFiles concatenates a module's .tf sources, in sorted path
// order, into the single line sequence difflib diffs (spec.md
// §4.C3 step 7).
func flattenTfFiles(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		lines = append(lines, "# "+name)
		content := string(files[name])
		start := 0
		for i := 0; i < len(content); i++ {
			if content[i] == '\n' {
				lines = append(lines, content[start:i])
				start = i + 1
			}
		}
		if start < len(content) {
			lines = append(lines, content[start:])
		}
	}
	return lines
}

// DiffVersions computes the structured HCL diff between a module's
// previous and new source (spec.md §4.C3 step 7): lines present only
// in the new source are "added", only in the old are "removed", and
// lines difflib reports as a same-position substitution are "changed".
func DiffVersions(previousVersion string, oldFiles, newFiles map[string][]byte) *model.VersionDiff {
	oldLines := flattenTfFiles(oldFiles)
	newLines := flattenTfFiles(newFiles)

	records := difflib.Diff(oldLines, newLines)

	diff := &model.VersionDiff{PreviousVersion: previousVersion}
	for i := 0; i < len(records); i++ {
		rec := records[i]
		switch rec.Delta {
		case difflib.RightOnly:
			if i > 0 && records[i-1].Delta == difflib.LeftOnly {
				diff.Changed = append(diff.Changed, rec.Payload)
				continue
			}
			diff.Added = append(diff.Added, rec.Payload)
		case difflib.LeftOnly:
			if i+1 < len(records) && records[i+1].Delta == difflib.RightOnly {
				continue // consumed as a "changed" pair when the right side is visited
			}
			diff.Removed = append(diff.Removed, rec.Payload)
		}
	}
	return diff
}
