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

// Package ids implements the deterministic identifier and composite-key
// construction rules of spec.md §4.C1. Every function here is pure:
// same inputs always produce the same string, and these forms are
// exhaustively tested because changing them is a breaking, silent data
// migration.
package ids

import (
	"fmt"
	"strings"
)

const sep = "::"

// DeploymentIdentifier returns the canonical
// "<project>::<region>::<environment>::<deployment_id>" form used to
// build a deployment's PK and to key events/change records.
func DeploymentIdentifier(project, region, environment, deploymentID string) string {
	return strings.Join([]string{project, region, environment, deploymentID}, sep)
}

// ModuleIdentifier returns the canonical "<track>::<module>" form used
// to build a module/stack's PK.
func ModuleIdentifier(module, track string) string {
	return strings.Join([]string{track, module}, sep)
}

// ClaimDeploymentID derives a deployment_id deterministically from a
// claim's kind/namespace/name (spec.md §4.C5), so re-submitting the
// same claim always resolves to the same deployment row regardless of
// which claim source (CLI, operator, GitOps) produced it.
func ClaimDeploymentID(kind, namespace, name string) string {
	if namespace == "" {
		namespace = "default"
	}
	return fmt.Sprintf("%s/%s/%s", kind, namespace, name)
}

// PolicyIdentifier returns the canonical "<environment>::<policy>" form.
func PolicyIdentifier(policy, environment string) string {
	return strings.Join([]string{environment, policy}, sep)
}

// ModulePK returns the PK of a module/stack version row:
// "MODULE#<track>::<module>".
func ModulePK(module, track string) string {
	return "MODULE#" + ModuleIdentifier(module, track)
}

// ModuleVersionSK returns the SK of a module/stack version row, given
// a caller-supplied zero-padded version string (see pkg/semverx).
func ModuleVersionSK(paddedVersion string) string {
	return "VERSION#" + paddedVersion
}

// LatestModulePK returns the PK of the sibling latest-version row.
func LatestModulePK(isStack bool) string {
	if isStack {
		return "LATEST_STACK"
	}
	return "LATEST_MODULE"
}

// LatestModuleSK returns the SK of the sibling latest-version row:
// "MODULE#<track>::<module>".
func LatestModuleSK(module, track string) string {
	return "MODULE#" + ModuleIdentifier(module, track)
}

// PolicyPK returns the PK of a policy version row.
func PolicyPK(policy, environment string) string {
	return "POLICY#" + PolicyIdentifier(policy, environment)
}

// PolicyVersionSK returns the SK of a policy version row.
func PolicyVersionSK(paddedVersion string) string {
	return "VERSION#" + paddedVersion
}

// CurrentPolicyPK is the hash key of the sibling "latest policy" row.
const CurrentPolicyPK = "CURRENT"

// CurrentPolicySK returns the SK of the sibling latest-policy row.
func CurrentPolicySK(policy, environment string) string {
	return "POLICY#" + PolicyIdentifier(policy, environment)
}

// ProviderPK returns the PK of a provider version row.
func ProviderPK(provider string) string {
	return "PROVIDER#" + provider
}

// ProviderVersionSK returns the SK of a provider version row.
func ProviderVersionSK(paddedVersion string) string {
	return "VERSION#" + paddedVersion
}

// LatestProviderPK is the hash key of the sibling "latest provider" row.
const LatestProviderPK = "LATEST_PROVIDER"

// LatestProviderSK returns the SK of the sibling latest-provider row.
func LatestProviderSK(provider string) string {
	return "PROVIDER#" + provider
}

// ProviderZipKey returns the blob-store key for a provider lock bundle.
func ProviderZipKey(provider, version string) string {
	return fmt.Sprintf("providers/%s/%s-%s.zip", provider, provider, version)
}

// DeploymentPK returns the PK of a deployment's metadata row.
func DeploymentPK(project, region, environment, deploymentID string) string {
	return "DEPLOYMENT#" + DeploymentIdentifier(project, region, environment, deploymentID)
}

// DeploymentMetadataSK is the fixed SK of a deployment's own row.
const DeploymentMetadataSK = "METADATA"

// DependentSK returns the SK of a DEPENDENT# sibling row recorded
// under a dependency's PK on behalf of a dependent deployment.
func DependentSK(dependentDeploymentID string) string {
	return "DEPENDENT#" + dependentDeploymentID
}

func deletedAsInt(deleted bool) int {
	if deleted {
		return 1
	}
	return 0
}

// DeletedIndexPK returns the hash key of the deployments DeletedIndex
// (spec.md §3): scoped to a project/region/environment and the
// deleted flag, so a listing request can skip logically-deleted rows
// without a table scan.
func DeletedIndexPK(deleted bool, project, region, environment string) string {
	return fmt.Sprintf("DELETED#%d%s%s", deletedAsInt(deleted), sep, strings.Join([]string{project, region, environment}, sep))
}

// ModuleIndexPK returns the hash key of the deployments ModuleIndex:
// every deployment running a given (module, track), across projects.
func ModuleIndexPK(module, track string) string {
	return "MODULE_IDX#" + ModuleIdentifier(module, track)
}

// DeletedCompositeRangeKey returns the "deleted_PK" synthetic range
// attribute on ModuleIndex, letting a per-module listing filter out
// deleted deployments via a range prefix instead of a second index.
func DeletedCompositeRangeKey(deleted bool, deploymentPK string) string {
	return fmt.Sprintf("%d%s%s", deletedAsInt(deleted), sep, deploymentPK)
}

// NotDeletedRangePrefix returns the "deleted_PK" range prefix that
// matches only non-deleted rows, for use with WithRangeStartsWith.
func NotDeletedRangePrefix() string {
	return fmt.Sprintf("%d%s", deletedAsInt(false), sep)
}

// DriftCheckIndexPK returns the hash key of the deployments
// DriftCheckIndex: every non-deleted deployment, ordered by
// next_drift_check_epoch, so the drift scheduler can page through
// whatever is due without scanning deleted rows.
func DriftCheckIndexPK(deleted bool) string {
	return fmt.Sprintf("DRIFT#%d", deletedAsInt(deleted))
}

// PlanPK returns the PK used for a deployment's parallel plan rows.
func PlanPK(project, region, environment, deploymentID string) string {
	return "PLAN#" + DeploymentIdentifier(project, region, environment, deploymentID)
}

// EventPK returns the PK of a deployment's event trail.
func EventPK(project, region, environment, deploymentID string) string {
	return "EVENT#" + DeploymentIdentifier(project, region, environment, deploymentID)
}

// EventSK returns the SK of one event: "<epoch>::<job_id>::<status>".
// Using job_id in the SK (not just epoch) keeps the stream monotonic
// even when two jobs for the same deployment race (spec.md §5).
func EventSK(epoch int64, jobID, status string) string {
	return fmt.Sprintf("%020d%s%s%s%s", epoch, sep, jobID, sep, status)
}

// EventRegionPK returns the hash key of the cross-tenant RegionIndex
// on events: "EVENT#<region>".
func EventRegionPK(region string) string {
	return "EVENT#" + region
}

// ChangeRecordPK returns the PK for a change record, tagged by whether
// it is a mutating (apply/destroy) or plan-only change.
func ChangeRecordPK(mutate bool, project, region, environment, deploymentID string) string {
	prefix := "PLAN#"
	if mutate {
		prefix = "MUTATE#"
	}
	return prefix + DeploymentIdentifier(project, region, environment, deploymentID)
}

// ChangeRecordSK returns the SK of one change record: "<epoch>::<job_id>".
func ChangeRecordSK(epoch int64, jobID string) string {
	return fmt.Sprintf("%020d%s%s", epoch, sep, jobID)
}

// ProjectsPK is the fixed hash key under which all Project rows live.
const ProjectsPK = "PROJECTS"

// ProjectSK returns the SK of a single project row.
func ProjectSK(projectID string) string {
	return "PROJECT#" + projectID
}

// ModuleZipKey returns the blob-store key for a module/stack source zip.
func ModuleZipKey(module, version string) string {
	return fmt.Sprintf("modules/%s/%s-%s.zip", module, module, version)
}

// PolicyZipKey returns the blob-store key for a policy bundle zip.
func PolicyZipKey(policy, version string) string {
	return fmt.Sprintf("policies/%s/%s-%s.zip", policy, policy, version)
}

// PlanOutputKey returns the blob-store key for a job's raw plan JSON.
func PlanOutputKey(account, environment, deploymentID, command, jobID string) string {
	return fmt.Sprintf("change_records/%s/%s/%s/%s_%s_plan_output.json", account, environment, deploymentID, command, jobID)
}

// TerraformStateKey returns the backend-config key for a deployment's
// remote state file.
func TerraformStateKey(environment, deploymentID string) string {
	return fmt.Sprintf("terraform/%s/%s/terraform.tfstate", environment, deploymentID)
}
