// Package combo deterministically constructs the per-leg direction/ratio
// list and canonical signature for every named multi-leg shape.
package combo

import (
	"fmt"

	"github.com/dufanyin/optionrunner/internal/domain"
)

// Input is one named option leg candidate offered to Build. The key names
// required per ComboType are documented on each builder function below.
type Input struct {
	Symbol string
	Expiry string // YYYYMMDD, used verbatim for signature construction
	Right  domain.OptionRight
	Strike string
}

func (in Input) legSignature() string {
	return fmt.Sprintf("%s%s%s", in.Expiry, in.Right.String(), in.Strike)
}

func leg(in Input, direction domain.Direction, ratio int) domain.Leg {
	return domain.Leg{Symbol: in.Symbol, Direction: direction, Ratio: ratio, Right: in.Right}
}

// Build dispatches to the named-shape builder for comboType and returns its
// legs plus the canonical signature. inputs is keyed by
// leg name as documented per shape below; volume is each leg's base ratio
// (the order's volume); ratio is only consulted for RATIO_SPREAD, scaling
// the short leg's ratio (0 or unset defaults to the standard 1:2 ratio).
func Build(comboType domain.ComboType, inputs map[string]Input, direction domain.Direction, volume, ratio int) ([]domain.Leg, string, error) {
	switch comboType {
	case domain.ComboStraddle:
		return straddle(inputs, direction, volume)
	case domain.ComboStrangle:
		return strangle(inputs, direction, volume)
	case domain.ComboIronCondor:
		return ironCondor(inputs, direction, volume)
	case domain.ComboRiskReversal:
		return riskReversal(inputs, direction, volume)
	case domain.ComboSpread:
		return spread(inputs, direction, volume)
	case domain.ComboDiagonalSpread:
		return diagonalSpread(inputs, direction, volume)
	case domain.ComboRatioSpread:
		return ratioSpread(inputs, direction, volume, ratio)
	case domain.ComboButterfly:
		return butterfly(inputs, direction, volume)
	case domain.ComboInverseButterfly:
		return inverseButterfly(inputs, direction, volume)
	case domain.ComboIronButterfly:
		return ironButterfly(inputs, direction, volume)
	case domain.ComboCondor:
		return condor(inputs, direction, volume)
	case domain.ComboBoxSpread:
		return boxSpread(inputs, direction, volume)
	case domain.ComboCustom:
		return custom(inputs, direction, volume)
	default:
		return nil, "", fmt.Errorf("unsupported combo type: %s", comboType)
	}
}

func require(inputs map[string]Input, key string) (Input, error) {
	in, ok := inputs[key]
	if !ok {
		return Input{}, fmt.Errorf("combo builder: missing leg %q", key)
	}
	return in, nil
}

func signatureOf(legs []domain.Leg, ins ...Input) string {
	sigs := make([]string, 0, len(ins))
	for _, in := range ins {
		sigs = append(sigs, in.legSignature())
	}
	return domain.GenerateComboSignature(sigs)
}

// straddle builds {"call": Input, "put": Input}: ATM call + ATM put, both
// legs carrying the overall intent direction.
func straddle(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	call, err := require(inputs, "call")
	if err != nil {
		return nil, "", err
	}
	put, err := require(inputs, "put")
	if err != nil {
		return nil, "", err
	}
	legs := []domain.Leg{leg(call, direction, volume), leg(put, direction, volume)}
	return legs, signatureOf(legs, call, put), nil
}

// strangle builds {"call": Input, "put": Input}: OTM call + OTM put, same
// sign convention as straddle.
func strangle(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	call, err := require(inputs, "call")
	if err != nil {
		return nil, "", err
	}
	put, err := require(inputs, "put")
	if err != nil {
		return nil, "", err
	}
	legs := []domain.Leg{leg(call, direction, volume), leg(put, direction, volume)}
	return legs, signatureOf(legs, call, put), nil
}

// ironCondor builds {"put_lower","put_upper","call_lower","call_upper"}.
// SHORT intent: put_lower=LONG, put_upper=SHORT, call_lower=SHORT,
// call_upper=LONG; LONG intent inverts each.
func ironCondor(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	putLower, err := require(inputs, "put_lower")
	if err != nil {
		return nil, "", err
	}
	putUpper, err := require(inputs, "put_upper")
	if err != nil {
		return nil, "", err
	}
	callLower, err := require(inputs, "call_lower")
	if err != nil {
		return nil, "", err
	}
	callUpper, err := require(inputs, "call_upper")
	if err != nil {
		return nil, "", err
	}

	sign := 1
	if direction != domain.DirectionShort {
		sign = -1
	}
	legs := []domain.Leg{
		leg(putLower, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(putUpper, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(callLower, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(callUpper, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
	}
	return legs, signatureOf(legs, putLower, putUpper, callLower, callUpper), nil
}

// riskReversal builds {"long_leg","short_leg"}: long call + short put for a
// LONG (bullish) intent.
func riskReversal(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	longLeg, shortLeg, err := requirePair(inputs, "long_leg", "short_leg")
	if err != nil {
		return nil, "", err
	}
	sign := 1
	if direction != domain.DirectionLong {
		sign = -1
	}
	legs := []domain.Leg{
		leg(longLeg, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(shortLeg, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
	}
	return legs, signatureOf(legs, longLeg, shortLeg), nil
}

// custom applies direction uniformly to every input, used to close an
// existing position regardless of its original shape.
func custom(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	if len(inputs) == 0 {
		return nil, "", fmt.Errorf("combo builder: custom requires at least one leg")
	}
	legs := make([]domain.Leg, 0, len(inputs))
	sigIns := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		legs = append(legs, leg(in, direction, volume))
		sigIns = append(sigIns, in)
	}
	return legs, signatureOf(legs, sigIns...), nil
}

// spread builds {"long_leg","short_leg"}: a vertical (or calendar) spread.
func spread(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	return longShortSign(inputs, direction, volume)
}

// diagonalSpread builds {"long_leg","short_leg"} across differing strikes
// and expirations; sign convention is identical to spread.
func diagonalSpread(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	return longShortSign(inputs, direction, volume)
}

func longShortSign(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	longLeg, shortLeg, err := requirePair(inputs, "long_leg", "short_leg")
	if err != nil {
		return nil, "", err
	}
	sign := 1
	if direction != domain.DirectionLong {
		sign = -1
	}
	legs := []domain.Leg{
		leg(longLeg, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(shortLeg, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
	}
	return legs, signatureOf(legs, longLeg, shortLeg), nil
}

// ratioSpread builds {"long_leg","short_leg"}, multiplying the short leg's
// ratio by the caller-supplied ratio (default 2 when ratio <= 0).
func ratioSpread(inputs map[string]Input, direction domain.Direction, volume, ratio int) ([]domain.Leg, string, error) {
	longLeg, shortLeg, err := requirePair(inputs, "long_leg", "short_leg")
	if err != nil {
		return nil, "", err
	}
	if ratio <= 0 {
		ratio = 2
	}
	sign := 1
	if direction != domain.DirectionLong {
		sign = -1
	}
	legs := []domain.Leg{
		leg(longLeg, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(shortLeg, pick(sign, domain.DirectionShort, domain.DirectionLong), volume*ratio),
	}
	return legs, signatureOf(legs, longLeg, shortLeg), nil
}

// butterfly builds {"body","wing1","wing2"}: long body + short wings for a
// LONG intent.
func butterfly(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	body, wing1, wing2, err := requireTriple(inputs, "body", "wing1", "wing2")
	if err != nil {
		return nil, "", err
	}
	sign := 1
	if direction != domain.DirectionLong {
		sign = -1
	}
	legs := []domain.Leg{
		leg(body, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(wing1, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(wing2, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
	}
	return legs, signatureOf(legs, body, wing1, wing2), nil
}

// inverseButterfly builds {"body","wing1","wing2"}: short body + long wings
// for a LONG intent.
func inverseButterfly(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	body, wing1, wing2, err := requireTriple(inputs, "body", "wing1", "wing2")
	if err != nil {
		return nil, "", err
	}
	sign := 1
	if direction != domain.DirectionLong {
		sign = -1
	}
	legs := []domain.Leg{
		leg(body, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(wing1, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(wing2, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
	}
	return legs, signatureOf(legs, body, wing1, wing2), nil
}

// ironButterfly builds {"put_wing","body","call_wing"}: long put wing +
// short body + long call wing for a LONG intent.
func ironButterfly(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	putWing, body, callWing, err := requireTriple(inputs, "put_wing", "body", "call_wing")
	if err != nil {
		return nil, "", err
	}
	sign := 1
	if direction != domain.DirectionLong {
		sign = -1
	}
	legs := []domain.Leg{
		leg(putWing, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(body, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(callWing, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
	}
	return legs, signatureOf(legs, putWing, body, callWing), nil
}

// condor builds {"long_put","short_put","short_call","long_call"}: the
// all-calls/all-puts wide-body variant of iron condor, same sign shape.
func condor(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	longPut, shortPut, shortCall, longCall, err := requireQuad(inputs, "long_put", "short_put", "short_call", "long_call")
	if err != nil {
		return nil, "", err
	}
	sign := 1
	if direction != domain.DirectionLong {
		sign = -1
	}
	legs := []domain.Leg{
		leg(longPut, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(shortPut, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(shortCall, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(longCall, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
	}
	return legs, signatureOf(legs, longPut, shortPut, shortCall, longCall), nil
}

// boxSpread builds {"long_call","short_call","short_put","long_put"}: the
// combined bull-call/bear-put arbitrage shape.
func boxSpread(inputs map[string]Input, direction domain.Direction, volume int) ([]domain.Leg, string, error) {
	longCall, shortCall, shortPut, longPut, err := requireQuad(inputs, "long_call", "short_call", "short_put", "long_put")
	if err != nil {
		return nil, "", err
	}
	sign := 1
	if direction != domain.DirectionLong {
		sign = -1
	}
	legs := []domain.Leg{
		leg(longCall, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
		leg(shortCall, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(shortPut, pick(sign, domain.DirectionShort, domain.DirectionLong), volume),
		leg(longPut, pick(sign, domain.DirectionLong, domain.DirectionShort), volume),
	}
	return legs, signatureOf(legs, longCall, shortCall, shortPut, longPut), nil
}

func pick(sign int, positive, negative domain.Direction) domain.Direction {
	if sign > 0 {
		return positive
	}
	return negative
}

func requirePair(inputs map[string]Input, k1, k2 string) (Input, Input, error) {
	a, err := require(inputs, k1)
	if err != nil {
		return Input{}, Input{}, err
	}
	b, err := require(inputs, k2)
	if err != nil {
		return Input{}, Input{}, err
	}
	return a, b, nil
}

func requireTriple(inputs map[string]Input, k1, k2, k3 string) (Input, Input, Input, error) {
	a, b, err := requirePair(inputs, k1, k2)
	if err != nil {
		return Input{}, Input{}, Input{}, err
	}
	c, err := require(inputs, k3)
	if err != nil {
		return Input{}, Input{}, Input{}, err
	}
	return a, b, c, nil
}

func requireQuad(inputs map[string]Input, k1, k2, k3, k4 string) (Input, Input, Input, Input, error) {
	a, b, c, err := requireTriple(inputs, k1, k2, k3)
	if err != nil {
		return Input{}, Input{}, Input{}, Input{}, err
	}
	d, err := require(inputs, k4)
	if err != nil {
		return Input{}, Input{}, Input{}, Input{}, err
	}
	return a, b, c, d, nil
}
