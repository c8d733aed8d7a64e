// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package requests

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/thor"
)

var (
	slotRequests     = thor.BytesToBytes32([]byte("requests"))
	slotQueryHashes  = thor.BytesToBytes32([]byte("query-hashes"))
	slotQueue        = thor.BytesToBytes32([]byte("request-queue"))
	slotRequestCount = thor.BytesToBytes32([]byte("request-count"))

	logger = log.WithContext("pkg", "requests")
)

// Service keeps requests and the bounded queue of tipped requests.
type Service struct {
	requests *solidity.Mapping[solidity.Uint64Key, *Request]
	byHash   *solidity.Mapping[thor.Bytes32, uint64]
	queue    *solidity.Value[Queue]
	count    *solidity.Uint256
}

func New(sctx *solidity.Context) *Service {
	return &Service{
		requests: solidity.NewMapping[solidity.Uint64Key, *Request](sctx, slotRequests),
		byHash:   solidity.NewMapping[thor.Bytes32, uint64](sctx, slotQueryHashes),
		queue:    solidity.NewValue[Queue](sctx, slotQueue),
		count:    solidity.NewUint256(sctx, slotRequestCount),
	}
}

// QueryHash identifies a query by its label and granularity.
func QueryHash(label string, granularity uint64) thor.Bytes32 {
	return thor.Keccak256([]byte(label), math.U256Bytes(new(big.Int).SetUint64(granularity)))
}

// Get returns the request, nil if the id was never seen.
func (s *Service) Get(id uint64) (*Request, error) {
	req, err := s.requests.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrap(err, "get request")
	}
	if req != nil && req.TotalTip == nil {
		req.TotalTip = new(big.Int)
	}
	return req, nil
}

func (s *Service) set(req *Request) error {
	return errors.Wrap(s.requests.Set(solidity.Uint64Key(req.ID), req), "set request")
}

// Count returns the highest request id allocated so far.
func (s *Service) Count() (uint64, error) {
	c, err := s.count.Get()
	if err != nil {
		return 0, err
	}
	return c.Uint64(), nil
}

func (s *Service) bumpCount(id uint64) error {
	c, err := s.Count()
	if err != nil {
		return err
	}
	if id > c {
		s.count.Set(new(big.Int).SetUint64(id))
	}
	return nil
}

// IDByQueryHash returns the id a query resolved to, 0 if none.
func (s *Service) IDByQueryHash(hash thor.Bytes32) (uint64, error) {
	id, err := s.byHash.Get(hash)
	return id, errors.Wrap(err, "get query hash")
}

// Resolve maps a query to its request id, allocating the next id for an unseen query.
func (s *Service) Resolve(label string, granularity uint64, requester thor.Address) (uint64, error) {
	if label == "" {
		return 0, reverts.ErrInvalidQuery
	}
	hash := QueryHash(label, granularity)
	id, err := s.IDByQueryHash(hash)
	if err != nil || id != 0 {
		return id, err
	}

	count, err := s.Count()
	if err != nil {
		return 0, err
	}
	// AddTip keeps the count above every tipped id, so count+1 is always unseen
	id = count + 1
	req := &Request{ID: id, TotalTip: new(big.Int), Requester: requester}
	req.Label = label
	req.Granularity = granularity
	req.QueryHash = hash
	if err := s.set(req); err != nil {
		return 0, err
	}
	if err := s.byHash.Set(hash, id); err != nil {
		return 0, errors.Wrap(err, "set query hash")
	}
	if err := s.bumpCount(id); err != nil {
		return 0, err
	}
	logger.Debug("request created", "id", id, "label", label, "granularity", granularity)
	return id, nil
}

// Queue returns the queue with all slots allocated.
func (s *Service) Queue() (*Queue, error) {
	q, err := s.queue.Get()
	if err != nil {
		return nil, errors.Wrap(err, "get queue")
	}
	q.normalize()
	return &q, nil
}

func (s *Service) setQueue(q *Queue) error {
	return errors.Wrap(s.queue.Set(*q), "set queue")
}

// AddTip adds amount to the pool of the request and updates the queue.
// It creates the request on its first tip. The tip is kept in the pool even
// when the request can't get a slot.
func (s *Service) AddTip(id uint64, tipper thor.Address, amount *big.Int) (*Request, error) {
	if id == 0 {
		return nil, reverts.ErrUnknownID
	}
	if amount.Sign() < 0 {
		return nil, reverts.ErrInvalidAmount
	}
	req, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		req = &Request{ID: id, TotalTip: new(big.Int), Requester: tipper}
		if err := s.bumpCount(id); err != nil {
			return nil, err
		}
	}
	req.TotalTip.Add(req.TotalTip, amount)

	q, err := s.Queue()
	if err != nil {
		return nil, err
	}

	switch {
	case req.QueuePosition > 0:
		slot := &q.Slots[req.QueuePosition]
		slot.Tip = new(big.Int).Set(req.TotalTip)
		if q.OnDeck != id && req.TotalTip.Cmp(q.onDeckTip()) > 0 {
			q.OnDeck = id
		}
	case req.TotalTip.Sign() > 0:
		idx := q.minIndex()
		slot := &q.Slots[idx]
		if req.TotalTip.Cmp(slot.tip()) <= 0 {
			logger.Debug("tip not queued", "id", id, "pool", req.TotalTip, "min", slot.tip())
			break
		}
		recompute := false
		if !slot.empty() {
			evicted, err := s.Get(slot.RequestID)
			if err != nil {
				return nil, err
			}
			evicted.QueuePosition = 0
			if err := s.set(evicted); err != nil {
				return nil, err
			}
			recompute = q.OnDeck == evicted.ID
			logger.Debug("request evicted", "id", evicted.ID, "pool", evicted.TotalTip, "by", id)
		}
		*slot = Slot{RequestID: id, Tip: new(big.Int).Set(req.TotalTip), Seq: q.NextSeq}
		q.NextSeq++
		req.QueuePosition = uint64(idx)

		if recompute {
			q.OnDeck = q.Slots[q.maxIndex()].RequestID
		} else if q.OnDeck == 0 || req.TotalTip.Cmp(q.onDeckTip()) > 0 {
			q.OnDeck = id
		}
	}

	if err := s.setQueue(q); err != nil {
		return nil, err
	}
	return req, s.set(req)
}

// PopOnDeck removes the on-deck request from the queue and takes its pool.
// It returns id 0 when the queue is empty.
func (s *Service) PopOnDeck() (uint64, *big.Int, error) {
	q, err := s.Queue()
	if err != nil {
		return 0, nil, err
	}
	if q.OnDeck == 0 {
		return 0, new(big.Int), nil
	}
	req, err := s.Get(q.OnDeck)
	if err != nil {
		return 0, nil, err
	}
	if req == nil {
		return 0, nil, errors.Errorf("on-deck request %d missing", q.OnDeck)
	}

	if req.QueuePosition > 0 {
		q.Slots[req.QueuePosition] = Slot{}
	}
	pool := req.TotalTip
	req.TotalTip = new(big.Int)
	req.QueuePosition = 0
	q.OnDeck = q.Slots[q.maxIndex()].RequestID

	if err := s.setQueue(q); err != nil {
		return 0, nil, err
	}
	if err := s.set(req); err != nil {
		return 0, nil, err
	}
	return req.ID, pool, nil
}

// RequestQ returns the tips of all slots, indexed by slot.
func (s *Service) RequestQ() ([]*big.Int, error) {
	q, err := s.Queue()
	if err != nil {
		return nil, err
	}
	tips := make([]*big.Int, len(q.Slots))
	for i := range q.Slots {
		tips[i] = new(big.Int).Set(q.Slots[i].tip())
	}
	return tips, nil
}

// IDByQueueIndex returns the request id in the given slot, 0 if empty.
func (s *Service) IDByQueueIndex(i uint64) (uint64, error) {
	if i >= thor.RequestQLength {
		return 0, reverts.ErrIndexOutOfRange
	}
	q, err := s.Queue()
	if err != nil {
		return 0, err
	}
	return q.Slots[i].RequestID, nil
}

// OnDeck returns the on-deck request, nil when the queue is empty.
func (s *Service) OnDeck() (*Request, error) {
	q, err := s.Queue()
	if err != nil {
		return nil, err
	}
	if q.OnDeck == 0 {
		return nil, nil
	}
	return s.Get(q.OnDeck)
}
