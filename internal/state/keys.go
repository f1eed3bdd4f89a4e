package state

// Output keys written by the pipeline. Each key is owned by the first
// agent that writes it.
const (
	// Foundation pass.
	KeyCleanedResponses = "cleaned_responses"
	KeyDataQuality      = "data_quality"
	KeyNPSMetrics       = "nps_metrics"
	KeyTaggedResponses  = "tagged_responses"
	KeyClusters         = "clusters"

	// Analysis pass.
	KeyTechnicalFindings    = "technical_findings"
	KeyPassiveAnalysis      = "passive_analysis"
	KeyDetractorAnalysis    = "detractor_analysis"
	KeyThemes               = "themes"
	KeyDrivers              = "drivers"
	KeyProductDimension     = "product_dimension"
	KeyGeographicDimension  = "geographic_dimension"
	KeyChannelDimension     = "channel_dimension"
	KeyAnalysisSynthesis    = "analysis_synthesis"
	KeyConfidenceAssessment = "confidence_assessment"

	// Consulting pass.
	KeyStrategicRecommendations = "strategic_recommendations"
	KeyProductRecommendations   = "product_recommendations"
	KeyMarketingRecommendations = "marketing_recommendations"
	KeyRiskAssessment           = "risk_assessment"
	KeyExecutiveSummary         = "executive_summary"
)
