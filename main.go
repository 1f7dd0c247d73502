package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/jasonlvhit/gocron"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/peterbourgon/ff"
	log "github.com/sirupsen/logrus"

	"github.com/passage-nav/passage-server/api"
	"github.com/passage-nav/passage-server/corridor"
	"github.com/passage-nav/passage-server/daylight"
	"github.com/passage-nav/passage-server/forecast"
	"github.com/passage-nav/passage-server/metrics"
	"github.com/passage-nav/passage-server/polar"
	"github.com/passage-nav/passage-server/route"
	"github.com/passage-nav/passage-server/sail"
	"github.com/passage-nav/passage-server/sim"
	"github.com/passage-nav/passage-server/xmpp"

	_ "net/http/pprof"
)

func main() {

	// .env is optional, flags and real env vars win
	_ = godotenv.Load()

	fs := flag.NewFlagSet("passage-server", flag.ExitOnError)
	var (
		listen         = fs.String("listen", ":8888", "listen address")
		logLevel       = fs.String("log-level", "info", "trace, debug, info, warn or error")
		cpuprofile     = fs.Bool("cpuprofile", false, "profile route planning calls")
		polarFile      = fs.String("polar-file", "", "polar diagram json, bundled Lagoon 440 when empty")
		forecastURL    = fs.String("forecast-url", "https://api.marine-weather.example.com", "marine forecast base url")
		forecastAPIKey = fs.String("forecast-api-key", "", "marine forecast api key")
		forecastRps    = fs.Float64("forecast-rps", 5, "forecast requests per second")
		gribDir        = fs.String("grib-dir", "", "directory of grib2 files, used instead of the http provider when set")
		xmppHost       = fs.String("xmpp-host", "", "")
		xmppJid        = fs.String("xmpp-jid", "", "")
		xmppPassword   = fs.String("xmpp-password", "", "")
		xmppTo         = fs.String("xmpp-to", "", "")
	)
	ff.Parse(fs, os.Args[1:], ff.WithEnvVarNoPrefix())

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	diagram := polar.Lagoon440()
	if *polarFile != "" {
		diagram, err = polar.Load(*polarFile)
		if err != nil {
			log.Fatalf("Load polar %s: %v", *polarFile, err)
		}
	}
	log.Infof("Polar diagram '%s' loaded (%d sail configurations)", diagram.Label, len(diagram.Sails))

	m := metrics.New()

	var provider forecast.Provider
	if *gribDir != "" {
		grib, err := forecast.NewGribProvider(*gribDir)
		if err != nil {
			log.Fatalf("Load gribs from %s: %v", *gribDir, err)
		}
		provider = grib

		s := gocron.NewScheduler()
		job := s.Every(6).Hours()
		job.Do(func() {
			if err := grib.Reload(); err != nil {
				log.Warnf("Grib refresh failed: %v", err)
			}
		})
		go s.Start()
	} else {
		provider = forecast.NewClient(forecast.ClientConfig{
			BaseURL: *forecastURL,
			APIKey:  *forecastAPIKey,
			Timeout: 10 * time.Second,
		})
	}
	provider = forecast.NewRateLimited(provider, *forecastRps, 1)

	clock := clockwork.NewRealClock()
	planner := route.NewPlanner(
		corridor.NewSampler(provider, m),
		sail.NewAdvisor(diagram),
		daylight.NewValidator(),
		clock,
		m,
	)
	engine := sim.New(m, sim.WithClock(clock))
	notifier := &xmpp.Notifier{Config: xmpp.Config{
		Host:     *xmppHost,
		Jid:      *xmppJid,
		Password: *xmppPassword,
		To:       *xmppTo,
	}}

	router := api.InitServer(*cpuprofile, planner, provider, engine, notifier)

	corsHeaders := handlers.AllowedHeaders([]string{"Content-Type"})
	corsMethods := handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost})
	corsOrigins := handlers.AllowedOrigins([]string{"*"})

	log.Infof("Start server on %s", *listen)
	log.Fatal(http.ListenAndServe(*listen,
		handlers.LoggingHandler(os.Stdout,
			handlers.CORS(corsHeaders, corsMethods, corsOrigins)(router))))
}
