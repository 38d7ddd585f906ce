package model

// AgentRevenue is the revenue an agent reports for itself.
type AgentRevenue struct {
	Agent   AgentID `json:"agent"`
	Number  int     `json:"number"`
	Revenue float64 `json:"revenue"`
}

// RevenueReport summarises the dispatcher's income and the agents' earnings.
type RevenueReport struct {
	Dispatcher float64        `json:"dispatcher"`
	Agents     []AgentRevenue `json:"agents"`
	Total      float64        `json:"total"`
}
