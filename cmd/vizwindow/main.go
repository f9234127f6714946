package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/vizdbg/bridge/internal/logging"
	"github.com/vizdbg/bridge/internal/observability"
	"github.com/vizdbg/bridge/internal/protocol"
	"github.com/vizdbg/bridge/internal/wire"
)

// vizwindow is the viewer-side development stub: it speaks the viewer's half
// of the protocol without any rendering, so the bridge can be exercised
// end-to-end from a terminal.

func main() {
	port := flag.Uint("p", 0, "bridge port to connect to")
	logFile := flag.String("l", "", "shared log file path")
	flag.Parse()

	logging.ConfigureRuntime()
	logger, closer, err := initLogger(*logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	if *port == 0 {
		logger.Fatal().Msg("missing -p port")
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", *port))
	if err != nil {
		logger.Fatal().Err(err).Msg("could not connect to bridge")
	}
	defer conn.Close()
	logger.Info().Uint("port", *port).Msg("connected to bridge")

	w := &window{
		conn:   conn.(*net.TCPConn),
		dec:    wire.NewDecoder(conn.(*net.TCPConn)),
		log:    logger,
		stored: make(map[string]protocol.BufferPayload),
	}
	w.run()
}

func initLogger(path string) (zerolog.Logger, interface{ Close() error }, error) {
	if path != "" {
		logger, closer, err := observability.InitFileLogger("vizwindow", path)
		return logger, closer, err
	}
	return observability.InitLogger("vizwindow"), nil, nil
}

type window struct {
	conn *net.TCPConn
	dec  *wire.Decoder
	log  zerolog.Logger

	available []string
	observed  []string
	stored    map[string]protocol.BufferPayload
}

func (w *window) run() {
	for {
		var rawKind uint32
		ok, err := w.dec.PollUint32(&rawKind, 200*time.Millisecond)
		if err != nil {
			w.log.Info().Err(err).Msg("bridge disconnected")
			return
		}
		if !ok {
			continue
		}
		if err := w.handle(protocol.MessageKind(rawKind)); err != nil {
			w.log.Error().Err(err).Msg("message handling failed")
			return
		}
	}
}

func (w *window) handle(kind protocol.MessageKind) error {
	switch kind {
	case protocol.GetObservedSymbols:
		return w.respondObservedSymbols()
	case protocol.SetAvailableSymbols:
		msg, err := protocol.DecodeAvailableSymbols(w.dec)
		if err != nil {
			return err
		}
		w.available = msg.Symbols
		w.log.Info().Strs("symbols", msg.Symbols).Msg("available symbols updated")
		// A real viewer requests data when the user selects a symbol; the
		// stub asks for the first one immediately.
		if len(msg.Symbols) > 0 {
			return w.requestPlot(msg.Symbols[0])
		}
		return nil
	case protocol.PlotBufferContents:
		msg, err := protocol.DecodeBufferContents(w.dec)
		if err != nil {
			return err
		}
		w.store(msg.Buffer)
		return nil
	default:
		return fmt.Errorf("unexpected message kind %s", kind)
	}
}

func (w *window) respondObservedSymbols() error {
	composer := wire.NewComposer(w.conn)
	protocol.EncodeObservedSymbolsResponse(composer, protocol.ObservedSymbolsResponse{Symbols: w.observed})
	if err := composer.Send(); err != nil {
		return err
	}
	w.log.Info().Strs("symbols", w.observed).Msg("sent observed symbols")
	return nil
}

func (w *window) requestPlot(variableName string) error {
	composer := wire.NewComposer(w.conn)
	protocol.EncodePlotRequest(composer, protocol.PlotRequest{VariableName: variableName})
	if err := composer.Send(); err != nil {
		return err
	}
	w.log.Info().Str("variable", variableName).Msg("requested buffer contents")
	return nil
}

func (w *window) store(payload protocol.BufferPayload) {
	stored := payload.Narrowed()
	w.stored[stored.VariableName] = stored
	if !slices.Contains(w.observed, stored.VariableName) {
		w.observed = append(w.observed, stored.VariableName)
	}
	width, height := stored.VisualizedDims()
	w.log.Info().
		Str("variable", stored.VariableName).
		Str("display", stored.DisplayName).
		Int32("width", width).
		Int32("height", height).
		Int32("channels", stored.Channels).
		Stringer("elem", stored.Elem).
		Int("bytes", len(stored.Data)).
		Msg("received symbol data")
}
