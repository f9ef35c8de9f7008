package graph

type (
	// Stats summarizes the shape of a plan. CriticalPath is the
	// longest chain of interdependent steps, which bounds the minimum
	// achievable run time when every step costs the same
	Stats struct {
		Steps           int     `json:"steps"`
		CriticalPath    int     `json:"critical_path"`
		WidestGroup     int     `json:"widest_group"`
		Parallelization float64 `json:"parallelization"`
		Speedup         float64 `json:"speedup"`
	}
)

// Stats computes the structural statistics of the plan. An empty plan
// reports zeros throughout
func (p *Plan) Stats() Stats {
	res := Stats{
		Steps:        len(p.Workflow.Steps),
		CriticalPath: len(p.Groups),
	}
	for _, group := range p.Groups {
		res.WidestGroup = max(res.WidestGroup, len(group))
	}
	if res.Steps > 0 && res.CriticalPath > 0 {
		total := float64(res.Steps)
		critical := float64(res.CriticalPath)
		res.Parallelization = 1 - critical/total
		res.Speedup = total / critical
	}
	return res
}
