package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/franksunye/incentive-ledger/internal/campaign"
)

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeBadCampaign = "E101" // Campaign definition rejected by validation
	ErrCodeBadBatch    = "E201" // Batch file unreadable or malformed
	ErrCodeRunFailed   = "E301" // Engine run failed
	ErrCodeDiverged    = "E302" // Backend ledgers diverged
)

// LoadError is an error that occurred while loading campaign rules.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult contains the campaign rule sets loaded from a directory.
type LoadResult struct {
	Rules     []campaign.Rules
	FileCount int
}

// LoadCampaigns loads and validates CUE campaign definitions from a
// directory. The expected shape is a top-level "campaign" struct keyed by
// campaign ID:
//
//	campaign: "BJ-2025-05": {
//		lucky_digit: "6"
//		...
//	}
//
// Every definition must pass rule validation; the first invalid campaign
// fails the whole load.
func LoadCampaigns(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	campaignsVal := value.LookupPath(cue.ParsePath("campaign"))
	if !campaignsVal.Exists() {
		return nil, &LoadError{Code: ErrCodeBadCampaign, Message: "no campaign definitions found"}
	}
	iter, err := campaignsVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("iterating campaigns: %v", err)}
	}
	for iter.Next() {
		var def campaign.Def
		if err := iter.Value().Decode(&def); err != nil {
			return nil, &LoadError{Code: ErrCodeBadCampaign, Message: fmt.Sprintf("campaign %s: %v", iter.Label(), err)}
		}
		// The ID comes from the struct label; an explicit id field inside
		// the definition must agree with it.
		if def.ID != "" && def.ID != iter.Label() {
			return nil, &LoadError{Code: ErrCodeBadCampaign, Message: fmt.Sprintf("campaign %s: id field %q disagrees with label", iter.Label(), def.ID)}
		}
		def.ID = iter.Label()

		rules, err := def.Rules()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBadCampaign, Message: err.Error()}
		}
		result.Rules = append(result.Rules, rules)
	}

	if len(result.Rules) == 0 {
		return nil, &LoadError{Code: ErrCodeBadCampaign, Message: "no campaign definitions found"}
	}
	return result, nil
}

// LoadRegistry loads campaign rules from dir into a registry.
func LoadRegistry(dir string) (*campaign.Registry, int, error) {
	result, err := LoadCampaigns(dir)
	if err != nil {
		return nil, 0, err
	}
	registry, err := campaign.NewRegistry(result.Rules...)
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeBadCampaign, Message: err.Error()}
	}
	return registry, result.FileCount, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
