package server

import "net/http"

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/admin/pipeline/run", s.handlePipelineRun)
	mux.HandleFunc("/admin/pipeline/discovery/run", s.handleStageRun("discovery"))
	mux.HandleFunc("/admin/pipeline/crawl/run", s.handleStageRun("crawl"))
	mux.HandleFunc("/admin/pipeline/enrich/run", s.handleStageRun("enrich"))
	mux.HandleFunc("/admin/pipeline/embed/run", s.handleStageRun("embed"))
	mux.HandleFunc("/admin/pipeline/maintain/run", s.handleStageRun("maintain"))
	mux.HandleFunc("/admin/companies/discover", s.handleCompanyDiscover)
	mux.HandleFunc("/admin/runs/", s.handleRunByID)

	return mux
}
