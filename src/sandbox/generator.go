package sandbox

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nuerofin/backend/src/models"
)

// Merchants is the fixed set of Indian brands sandbox payments are made to.
var Merchants = []string{
	"Amazon", "Flipkart", "Swiggy", "Zomato", "Myntra", "Paytm", "Google Pay", "PhonePe",
	"Uber", "Rapido", "DMart", "BigBazaar", "Apple", "Netflix", "Hotstar", "Ola",
	"Blinkit", "Zepto", "Starbucks", "KFC",
}

var paymentTypes = []models.PaymentType{
	models.PaymentUPI,
	models.PaymentDebitCard,
	models.PaymentCreditCard,
}

// Statuses are drawn with equal weight so failed and pending payments show up
// in dashboards as often as successful ones.
var statuses = []models.TransactionStatus{
	models.StatusSuccess,
	models.StatusFailed,
	models.StatusPending,
}

const (
	MinAmount = 50
	MaxAmount = 5000
)

// Generated pairs a transaction with the month key it is filed under.
type Generated struct {
	MonthKey    string
	Transaction models.SandboxTransaction
}

// Generator produces batches of synthetic transactions. Output is fully
// determined by the seed and the clock. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	sampler *Sampler
	rng     *rand.Rand
	ids     io.Reader
}

// NewGenerator returns a Generator whose draws and ids derive from seed.
// Draws and ids use separate ChaCha8 streams.
func NewGenerator(now func() time.Time, seed uint64) *Generator {
	var drawSeed, idSeed [32]byte
	binary.LittleEndian.PutUint64(drawSeed[:], seed)
	binary.LittleEndian.PutUint64(idSeed[:], seed)
	idSeed[31] = 0xff

	rng := rand.New(rand.NewChaCha8(drawSeed))
	return &Generator{
		sampler: NewSampler(now, rng),
		rng:     rng,
		ids:     rand.NewChaCha8(idSeed),
	}
}

// Generate builds count transactions for the card, in generation order.
// A non-positive count yields an empty batch.
func (g *Generator) Generate(cardNumber string, count int, bank string, mode Mode) []Generated {
	if count <= 0 {
		return []Generated{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	batch := make([]Generated, 0, count)
	for i := 0; i < count; i++ {
		ts := g.sampler.Sample(mode)
		merchant := Merchants[g.rng.IntN(len(Merchants))]
		paymentType := paymentTypes[g.rng.IntN(len(paymentTypes))]
		status := statuses[g.rng.IntN(len(statuses))]
		amount := MinAmount + g.rng.IntN(MaxAmount-MinAmount+1)

		tx := models.SandboxTransaction{
			ID:          g.nextID(),
			CardNumber:  cardNumber,
			Bank:        bank,
			Timestamp:   ts,
			Merchant:    merchant,
			Amount:      amount,
			Currency:    models.CurrencyINR,
			Status:      status,
			Type:        paymentType,
			Description: fmt.Sprintf("%s - Payment via %s", merchant, paymentType),
		}
		batch = append(batch, Generated{MonthKey: tx.MonthKey(), Transaction: tx})
	}
	return batch
}

func (g *Generator) nextID() string {
	id, err := uuid.NewRandomFromReader(g.ids)
	if err != nil {
		// ChaCha8 reads never fail; fall back to the global source anyway.
		return uuid.NewString()
	}
	return id.String()
}
