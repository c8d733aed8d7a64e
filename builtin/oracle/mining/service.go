// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"
	"slices"

	"github.com/pkg/errors"

	"github.com/vechain/thor-oracle/builtin/params"
	"github.com/vechain/thor-oracle/builtin/reverts"
	"github.com/vechain/thor-oracle/builtin/solidity"
	"github.com/vechain/thor-oracle/log"
	"github.com/vechain/thor-oracle/thor"
)

var (
	slotRound        = thor.BytesToBytes32([]byte("round"))
	slotMinedValues  = thor.BytesToBytes32([]byte("mined-values"))
	slotTimestamps   = thor.BytesToBytes32([]byte("mined-timestamps"))
	slotRoundCount   = thor.BytesToBytes32([]byte("round-count"))
	slotDifficulty   = thor.BytesToBytes32([]byte("difficulty"))
	slotLastNewTime  = thor.BytesToBytes32([]byte("time-of-last-new-value"))
	slotLastNewValue = thor.BytesToBytes32([]byte("last-new-value"))

	logger = log.WithContext("pkg", "mining")
)

// Service runs mining rounds and keeps the mined values.
// Paying miners and picking the next request is up to the caller.
type Service struct {
	params      *params.Params
	round       *solidity.Value[Round]
	values      *solidity.Mapping[thor.Bytes32, *MinedValue]
	timestamps  *solidity.Mapping[solidity.Uint64Key, []uint64]
	roundCount  *solidity.Uint256
	difficulty  *solidity.Uint256
	lastNewTime *solidity.Uint256
	lastNew     *solidity.Value[ValueRef]
}

func New(sctx *solidity.Context, params *params.Params) *Service {
	return &Service{
		params:      params,
		round:       solidity.NewValue[Round](sctx, slotRound),
		values:      solidity.NewMapping[thor.Bytes32, *MinedValue](sctx, slotMinedValues),
		timestamps:  solidity.NewMapping[solidity.Uint64Key, []uint64](sctx, slotTimestamps),
		roundCount:  solidity.NewUint256(sctx, slotRoundCount),
		difficulty:  solidity.NewUint256(sctx, slotDifficulty),
		lastNewTime: solidity.NewUint256(sctx, slotLastNewTime),
		lastNew:     solidity.NewValue[ValueRef](sctx, slotLastNewValue),
	}
}

// Init starts the difficulty clock.
func (s *Service) Init(now uint64) {
	s.lastNewTime.Set(new(big.Int).SetUint64(now))
	s.difficulty.Set(new(big.Int).SetUint64(thor.InitialDifficulty))
}

// Current returns the round in progress, inactive if none was opened.
func (s *Service) Current() (*Round, error) {
	r, err := s.round.Get()
	if err != nil {
		return nil, errors.Wrap(err, "get round")
	}
	if r.TotalTips == nil {
		r.TotalTips = new(big.Int)
	}
	return &r, nil
}

func (s *Service) setRound(r *Round) error {
	return errors.Wrap(s.round.Set(*r), "set round")
}

// Open starts a round for the request with the given tip pool.
func (s *Service) Open(requestID uint64, tips *big.Int, now uint64) (*Round, error) {
	granularity, err := s.params.GetUint64(thor.KeyTimestampGranularity)
	if err != nil {
		return nil, err
	}
	ts := now
	if granularity > 0 {
		ts = now - now%granularity
	}
	stamps, err := s.Timestamps(requestID)
	if err != nil {
		return nil, err
	}
	if n := len(stamps); n > 0 && ts <= stamps[n-1] {
		ts = stamps[n-1] + 1
	}

	r := &Round{
		RequestID: requestID,
		Timestamp: ts,
		TotalTips: new(big.Int).Set(tips),
		OpenedAt:  now,
	}
	if err := s.setRound(r); err != nil {
		return nil, err
	}
	logger.Debug("round opened", "id", requestID, "timestamp", ts, "tips", tips)
	return r, nil
}

// AddTips grows the tip pool of the round in progress.
func (s *Service) AddTips(amount *big.Int) (*Round, error) {
	r, err := s.Current()
	if err != nil {
		return nil, err
	}
	if !r.Active() {
		return nil, reverts.ErrWrongRequestID
	}
	r.TotalTips.Add(r.TotalTips, amount)
	return r, s.setRound(r)
}

// Submit buffers the value of the miner. It reports whether the round is complete.
func (s *Service) Submit(miner thor.Address, requestID uint64, value *big.Int) (bool, error) {
	r, err := s.Current()
	if err != nil {
		return false, err
	}
	if !r.Active() || r.RequestID != requestID {
		return false, reverts.ErrWrongRequestID
	}
	if r.Submitted(miner) {
		return false, reverts.ErrDuplicateSubmission
	}
	if len(r.Submissions) >= thor.MinersPerRound {
		return false, errors.Errorf("round of request %d already complete", requestID)
	}
	r.Submissions = append(r.Submissions, Submission{Miner: miner, Value: new(big.Int).Set(value)})
	if err := s.setRound(r); err != nil {
		return false, err
	}
	return len(r.Submissions) == thor.MinersPerRound, nil
}

// Finalize records the value of the complete round and adjusts the difficulty.
// It returns the closed round along with the recorded value, and leaves no round open.
func (s *Service) Finalize(now uint64) (*Round, *MinedValue, error) {
	r, err := s.Current()
	if err != nil {
		return nil, nil, err
	}
	if len(r.Submissions) != thor.MinersPerRound {
		return nil, nil, errors.Errorf("finalize with %d submissions", len(r.Submissions))
	}

	subs := slices.Clone(r.Submissions)
	slices.SortStableFunc(subs, func(a, b Submission) int {
		return a.Value.Cmp(b.Value)
	})

	count, err := s.roundCount.Get()
	if err != nil {
		return nil, nil, err
	}
	count.Add(count, big1)
	s.roundCount.Set(count)

	mv := &MinedValue{
		Value:    new(big.Int).Set(subs[thor.MedianIndex].Value),
		Miners:   make([]thor.Address, len(subs)),
		Values:   make([]*big.Int, len(subs)),
		RoundNum: count.Uint64(),
	}
	for i, sub := range subs {
		mv.Miners[i] = sub.Miner
		mv.Values[i] = sub.Value
	}

	ref := ValueRef{RequestID: r.RequestID, Timestamp: r.Timestamp}
	if err := s.values.Set(ref.Key(), mv); err != nil {
		return nil, nil, errors.Wrap(err, "set mined value")
	}
	stamps, err := s.Timestamps(r.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.timestamps.Set(solidity.Uint64Key(r.RequestID), append(stamps, r.Timestamp)); err != nil {
		return nil, nil, errors.Wrap(err, "set timestamps")
	}

	if err := s.adjustDifficulty(now); err != nil {
		return nil, nil, err
	}
	s.lastNewTime.Set(new(big.Int).SetUint64(now))
	if err := s.lastNew.Set(ref); err != nil {
		return nil, nil, errors.Wrap(err, "set last new value")
	}
	if err := s.setRound(&Round{}); err != nil {
		return nil, nil, err
	}

	logger.Debug("round finalized", "id", r.RequestID, "timestamp", r.Timestamp, "value", mv.Value, "round", mv.RoundNum)
	return r, mv, nil
}

func (s *Service) adjustDifficulty(now uint64) error {
	target, err := s.params.GetUint64(thor.KeyTimeTarget)
	if err != nil {
		return err
	}
	last, err := s.TimeOfLastNewValue()
	if err != nil {
		return err
	}
	diff, err := s.Difficulty()
	if err != nil {
		return err
	}
	elapsed := uint64(0)
	if now > last {
		elapsed = now - last
	}
	s.difficulty.Set(NextDifficulty(diff, elapsed, target))
	return nil
}

// Difficulty returns the current difficulty, at least 1.
func (s *Service) Difficulty() (*big.Int, error) {
	d, err := s.difficulty.Get()
	if err != nil {
		return nil, err
	}
	if d.Sign() == 0 {
		d.SetUint64(thor.InitialDifficulty)
	}
	return d, nil
}

func (s *Service) TimeOfLastNewValue() (uint64, error) {
	v, err := s.lastNewTime.Get()
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// RoundCount returns the number of finalized rounds.
func (s *Service) RoundCount() (uint64, error) {
	v, err := s.roundCount.Get()
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// MinedValue returns the value mined for the request at the timestamp, nil if none.
func (s *Service) MinedValue(requestID, timestamp uint64) (*MinedValue, error) {
	mv, err := s.values.Get(ValueKey(requestID, timestamp))
	if err != nil {
		return nil, errors.Wrap(err, "get mined value")
	}
	if mv != nil && mv.Value == nil {
		mv.Value = new(big.Int)
	}
	return mv, nil
}

func (s *Service) mustMinedValue(requestID, timestamp uint64) (*MinedValue, error) {
	mv, err := s.MinedValue(requestID, timestamp)
	if err != nil {
		return nil, err
	}
	if mv == nil {
		return nil, reverts.ErrUnknownID
	}
	return mv, nil
}

// MinedBlockNum returns the round number the value was mined in, 0 if never mined.
func (s *Service) MinedBlockNum(requestID, timestamp uint64) (uint64, error) {
	mv, err := s.MinedValue(requestID, timestamp)
	if err != nil || mv == nil {
		return 0, err
	}
	return mv.RoundNum, nil
}

// RetrieveData returns the canonical value, zero if none.
func (s *Service) RetrieveData(requestID, timestamp uint64) (*big.Int, error) {
	mv, err := s.MinedValue(requestID, timestamp)
	if err != nil {
		return nil, err
	}
	if mv == nil {
		return new(big.Int), nil
	}
	return mv.Value, nil
}

// Timestamps lists the timestamps the request was mined at, in mining order.
func (s *Service) Timestamps(requestID uint64) ([]uint64, error) {
	v, err := s.timestamps.Get(solidity.Uint64Key(requestID))
	return v, errors.Wrap(err, "get timestamps")
}

func (s *Service) TimestampByIndex(requestID uint64, i uint64) (uint64, error) {
	stamps, err := s.Timestamps(requestID)
	if err != nil {
		return 0, err
	}
	if i >= uint64(len(stamps)) {
		return 0, reverts.ErrIndexOutOfRange
	}
	return stamps[i], nil
}

func (s *Service) NewValueCount(requestID uint64) (uint64, error) {
	stamps, err := s.Timestamps(requestID)
	return uint64(len(stamps)), err
}

func (s *Service) DidMine(requestID, timestamp uint64, miner thor.Address) (bool, error) {
	mv, err := s.MinedValue(requestID, timestamp)
	if err != nil || mv == nil {
		return false, err
	}
	return mv.HasMiner(miner), nil
}

func (s *Service) IsInDispute(requestID, timestamp uint64) (bool, error) {
	mv, err := s.MinedValue(requestID, timestamp)
	if err != nil || mv == nil {
		return false, err
	}
	return mv.InDispute, nil
}

// SetInDispute flags the canonical value as challenged or cleared.
func (s *Service) SetInDispute(requestID, timestamp uint64, inDispute bool) error {
	mv, err := s.mustMinedValue(requestID, timestamp)
	if err != nil {
		return err
	}
	mv.InDispute = inDispute
	return errors.Wrap(s.values.Set(ValueKey(requestID, timestamp), mv), "set mined value")
}

// ZeroValue discards the canonical value after a successful challenge.
// The individual submissions are kept.
func (s *Service) ZeroValue(requestID, timestamp uint64) error {
	mv, err := s.mustMinedValue(requestID, timestamp)
	if err != nil {
		return err
	}
	mv.Value = new(big.Int)
	return errors.Wrap(s.values.Set(ValueKey(requestID, timestamp), mv), "set mined value")
}

// LastNewValue returns the most recently mined value and where it was stored.
func (s *Service) LastNewValue() (*big.Int, ValueRef, bool, error) {
	ref, err := s.lastNew.Get()
	if err != nil {
		return nil, ValueRef{}, false, errors.Wrap(err, "get last new value")
	}
	if ref.RequestID == 0 {
		return new(big.Int), ref, false, nil
	}
	v, err := s.RetrieveData(ref.RequestID, ref.Timestamp)
	if err != nil {
		return nil, ValueRef{}, false, err
	}
	return v, ref, true, nil
}
