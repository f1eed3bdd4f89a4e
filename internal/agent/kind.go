package agent

import "fmt"

// Layer is the pass an agent belongs to.
type Layer string

const (
	LayerFoundation Layer = "foundation"
	LayerAnalysis   Layer = "analysis"
	LayerConsulting Layer = "consulting"
)

// Kind identifies an agent. The set is closed: built-in kinds are the enum
// values below, and external agents get kinds allocated from a reserved
// range via Registry.RegisterPlugin.
type Kind int

const (
	KindUnknown Kind = iota

	// Foundation pass (A0-A3).
	KindIngestion
	KindQuantitative
	KindTextTagging
	KindClustering

	// Analysis pass (B1-B9).
	KindTechnical
	KindPassiveSegment
	KindDetractorSegment
	KindThemes
	KindDrivers
	KindProductDimension
	KindGeographicDimension
	KindChannelDimension
	KindCoordinator

	// Consulting pass (C1-C5).
	KindStrategic
	KindProductAdvisor
	KindMarketingAdvisor
	KindRiskManager
	KindExecutiveSynthesizer
)

// externalKindBase is where plugin-allocated kinds start.
const externalKindBase Kind = 100

var kindCodes = map[Kind]string{
	KindIngestion:            "A0",
	KindQuantitative:         "A1",
	KindTextTagging:          "A2",
	KindClustering:           "A3",
	KindTechnical:            "B1",
	KindPassiveSegment:       "B2",
	KindDetractorSegment:     "B3",
	KindThemes:               "B4",
	KindDrivers:              "B5",
	KindProductDimension:     "B6",
	KindGeographicDimension:  "B7",
	KindChannelDimension:     "B8",
	KindCoordinator:          "B9",
	KindStrategic:            "C1",
	KindProductAdvisor:       "C2",
	KindMarketingAdvisor:     "C3",
	KindRiskManager:          "C4",
	KindExecutiveSynthesizer: "C5",
}

// String returns the short agent code (A0, B3, C5, X101 for externals).
func (k Kind) String() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	if k >= externalKindBase {
		return fmt.Sprintf("X%d", int(k))
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsExternal reports whether the kind was allocated for a plugin.
func (k Kind) IsExternal() bool {
	return k >= externalKindBase
}
