package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Register is one per-packet metrics row.
type Register struct {
	Ue            string
	Seq           uint64
	SizeBytes     uint32
	SentAt        float64
	DeliveredAt   float64
	Lost          bool
	Retransmitted bool
}

// Writer drains packet registers off a channel into a CSV file, flushing
// whenever the in-memory buffer reaches its high-water mark.
type Writer struct {
	maxBufferSize uint32
	records       chan *Register
	buffer        []*Register
	file          *os.File
	csvWriter     *csv.Writer
	done          chan struct{}
}

func New(maxBufferSize uint32, filename string) (*Writer, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("error creating metrics file: %v", err)
	}
	w := &Writer{
		maxBufferSize: maxBufferSize,
		records:       make(chan *Register, maxBufferSize),
		buffer:        make([]*Register, 0, maxBufferSize),
		file:          f,
		csvWriter:     csv.NewWriter(f),
		done:          make(chan struct{}),
	}
	if err := w.csvWriter.Write([]string{"ue", "seq", "size_bytes", "sent_s", "delivered_s", "delay_s", "lost", "retransmitted"}); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Start consumes registers until the channel is closed. Run it on its own
// goroutine.
func (w *Writer) Start() {
	for r := range w.records {
		w.buffer = append(w.buffer, r)
		if uint32(len(w.buffer)) >= w.maxBufferSize {
			w.flush()
		}
	}
	w.flush()
	close(w.done)
}

func (w *Writer) Write(r *Register) {
	w.records <- r
}

// Close stops the drain goroutine, flushes what is left and closes the file.
func (w *Writer) Close() error {
	close(w.records)
	<-w.done
	w.csvWriter.Flush()
	if err := w.csvWriter.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func (w *Writer) flush() {
	for _, r := range w.buffer {
		delivered := ""
		delay := ""
		if !r.Lost {
			delivered = strconv.FormatFloat(r.DeliveredAt, 'f', 9, 64)
			delay = strconv.FormatFloat(r.DeliveredAt-r.SentAt, 'f', 9, 64)
		}
		row := []string{
			r.Ue,
			strconv.FormatUint(r.Seq, 10),
			strconv.FormatUint(uint64(r.SizeBytes), 10),
			strconv.FormatFloat(r.SentAt, 'f', 9, 64),
			delivered,
			delay,
			strconv.FormatBool(r.Lost),
			strconv.FormatBool(r.Retransmitted),
		}
		if err := w.csvWriter.Write(row); err != nil {
			fmt.Println("error writing metrics row:", err)
		}
	}
	w.csvWriter.Flush()
	w.buffer = w.buffer[:0]
}
