package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/passage-nav/passage-server/api/model"
	"github.com/passage-nav/passage-server/forecast"
	"github.com/passage-nav/passage-server/latlon"
	"github.com/passage-nav/passage-server/route"
	"github.com/passage-nav/passage-server/sim"
	"github.com/passage-nav/passage-server/xmpp"
)

type server struct {
	cpuprofile bool
	planner    *route.Planner
	provider   forecast.Provider
	engine     *sim.Engine
	notifier   *xmpp.Notifier

	mu         sync.Mutex
	conditions *sim.Conditions
	alerts     []sim.Alert
	deviated   *route.Route
}

// InitServer wires the planner, the forecast provider and the simulation
// engine into the HTTP routing table.
func InitServer(cpuprofile bool, planner *route.Planner, provider forecast.Provider, engine *sim.Engine, notifier *xmpp.Notifier) *mux.Router {

	router := mux.NewRouter().StrictSlash(true)

	s := server{
		cpuprofile: cpuprofile,
		planner:    planner,
		provider:   provider,
		engine:     engine,
		notifier:   notifier,
	}

	router.HandleFunc("/passage/-/healthz", s.healthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	apiV1 := router.PathPrefix("/passage/api/v1").Subrouter()
	apiV1.HandleFunc("/route", s.plan).Methods(http.MethodPost)
	apiV1.HandleFunc("/forecast/{lat}/{lon}", s.forecast).Methods(http.MethodGet)
	apiV1.HandleFunc("/simulation/start", s.simulationStart).Methods(http.MethodPost)
	apiV1.HandleFunc("/simulation/stop", s.simulationStop).Methods(http.MethodPost)
	apiV1.HandleFunc("/simulation/status", s.simulationStatus).Methods(http.MethodGet)

	return router
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status string `json:"status"`
	}

	json.NewEncoder(w).Encode(health{Status: "Ok"})
}

func (s *server) plan(w http.ResponseWriter, req *http.Request) {
	if s.cpuprofile {
		defer profile.Start().Stop()
	}

	fields := log.Fields{
		"action": "plan",
	}
	if ip, err := getIp(req); err == nil {
		fields["IP"] = ip
	}
	requestLogger := log.WithFields(fields)

	var r model.PlanRequest
	if err := json.NewDecoder(req.Body).Decode(&r); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	requestLogger.Infof("Plan '%s' (%f,%f) -> (%f,%f) mode '%s'", r.Name, r.Start.Lat, r.Start.Lon, r.Destination.Lat, r.Destination.Lon, r.Mode)

	start := time.Now()

	planned, err := s.planner.Plan(req.Context(), r.ToConfig())
	if err != nil {
		requestLogger.Warnf("Plan failed: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestLogger.Infof("Plan took %s (%d waypoints)", time.Since(start).String(), len(planned.Waypoints))

	json.NewEncoder(w).Encode(planned)
}

func (s *server) forecast(w http.ResponseWriter, req *http.Request) {
	lat, err := strconv.ParseFloat(mux.Vars(req)["lat"], 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(mux.Vars(req)["lon"], 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	pos := latlon.LatLon{Lat: lat, Lon: lon}
	if err := pos.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fc, err := s.provider.CurrentConditions(req.Context(), pos)
	if err != nil {
		log.Warnf("Forecast (%f,%f) failed: %v", lat, lon, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	log.Infof("Forecast (%f,%f) : %.1f kt %.0f°", lat, lon, fc.WindSpeed, fc.WindDirection)

	json.NewEncoder(w).Encode(fc)
}

func (s *server) simulationStart(w http.ResponseWriter, req *http.Request) {
	var r model.SimulationRequest
	if err := json.NewDecoder(req.Body).Decode(&r); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(r.Route.Waypoints) < 2 {
		http.Error(w, "route needs at least two waypoints", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.conditions = nil
	s.alerts = nil
	s.deviated = nil
	s.mu.Unlock()

	s.engine.Start(r.Route, sim.Callbacks{
		OnWeatherUpdate: func(c sim.Conditions) {
			s.mu.Lock()
			s.conditions = &c
			s.mu.Unlock()
		},
		OnStormAlert: func(a sim.Alert) {
			s.mu.Lock()
			s.alerts = append(s.alerts, a)
			s.mu.Unlock()
			s.notify(fmt.Sprintf("[%s/%s] %s", a.Type, a.Severity, a.Message))
		},
		OnRouteDeviation: func(rt route.Route) {
			s.mu.Lock()
			s.deviated = &rt
			s.mu.Unlock()
			s.notify(fmt.Sprintf("Route '%s' deviated around a storm", rt.Name))
		},
	})

	log.Infof("Simulation started over route '%s'", r.Route.Name)
	s.writeStatus(w)
}

func (s *server) simulationStop(w http.ResponseWriter, req *http.Request) {
	s.engine.Stop()
	s.writeStatus(w)
}

func (s *server) simulationStatus(w http.ResponseWriter, req *http.Request) {
	s.writeStatus(w)
}

func (s *server) writeStatus(w http.ResponseWriter) {
	s.mu.Lock()
	status := model.SimulationStatus{
		Running:       s.engine.Running(),
		Conditions:    s.conditions,
		Alerts:        append([]sim.Alert(nil), s.alerts...),
		DeviatedRoute: s.deviated,
	}
	s.mu.Unlock()

	json.NewEncoder(w).Encode(status)
}

// notify pushes a chat alert without blocking the simulation tick.
func (s *server) notify(message string) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	go func() {
		if err := s.notifier.Send(message); err != nil {
			log.Warnf("Alert notification failed: %v", err)
		}
	}()
}

func getIp(r *http.Request) (string, error) {
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip, nil
	}

	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		netIP := net.ParseIP(ip)
		if netIP != nil {
			return ip, nil
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip, nil
	}
	return "", fmt.Errorf("No valid ip found")
}
