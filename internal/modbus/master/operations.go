package master

import (
	"context"
	"encoding/binary"

	"github.com/marmos91/gomodbus-optimizer/internal/modbus/block"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/errors"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/optimize"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/policy"
	"github.com/marmos91/gomodbus-optimizer/internal/modbus/response"
)

// ReadSingle performs one contiguous read round-trip: validates fc is a
// read function code, builds the request PDU, runs the round-trip,
// checks for an exception response, and parses the result.
func (m *Master) ReadSingle(ctx context.Context, slaveID uint8, fc policy.FunctionCode, start, qty uint16) (response.ReadResult, error) {
	entry, err := policy.Lookup(fc)
	if err != nil {
		return response.ReadResult{}, err
	}
	if !entry.IsRead {
		return response.ReadResult{}, errors.Newf(errors.ErrInvalidFC, "function code 0x%02X is not a read", fc)
	}
	if _, err := block.New(slaveID, fc, start, qty); err != nil {
		return response.ReadResult{}, err
	}

	plan := optimize.RequestPlan{SlaveID: slaveID, FunctionCode: fc, StartAddress: start, Quantity: qty}
	decoded, err := m.roundTrip(ctx, plan, readPDU(start, qty))
	if err != nil {
		return response.ReadResult{}, err
	}
	if _, isException, excErr := checkException(decoded); isException {
		m.state = StateException
		return response.ReadResult{}, excErr
	}

	result, err := response.ParseRead(entry, qty, decoded.PDU)
	if err != nil {
		m.state = StateError
		return response.ReadResult{}, err
	}
	m.state = StateParsed
	return result, nil
}

// ReadOptimized runs the optimizer over a (possibly non-contiguous)
// address list, then drives one ReadSingle-equivalent round-trip per
// packed plan, appending parsed data to the caller result in plan order.
// Statistics: one round-trip per plan; blocks_merged accumulates
// original_address_count - plan_count. Aborts on the first failing plan.
func (m *Master) ReadOptimized(ctx context.Context, slaveID uint8, fc policy.FunctionCode, addresses []uint16) (Result, error) {
	entry, err := policy.Lookup(fc)
	if err != nil {
		return Result{}, err
	}
	if !entry.IsRead {
		return Result{}, errors.Newf(errors.ErrInvalidFC, "function code 0x%02X is not a read", fc)
	}

	opt, err := optimize.Plans(m.cfg.Mode, slaveID, fc, addresses, m.cfg.MaxPDUChars, m.cfg.GapChars, m.cfg.LatencyChars, optimize.WithPools(m.pools))
	if err != nil {
		return Result{}, err
	}
	if len(opt.Plans) == 0 {
		return Result{}, nil
	}

	m.stats.OptimizedReads++
	m.stats.RoundsSaved += uint64(opt.OriginalBlockCount - len(opt.Plans))
	m.stats.BlocksMerged += uint64(opt.OriginalCount - len(opt.Plans))

	var registers []uint16
	var bits []byte

	for _, plan := range opt.Plans {
		decoded, err := m.roundTrip(ctx, plan, readPDU(plan.StartAddress, plan.Quantity))
		if err != nil {
			return Result{}, err
		}
		if _, isException, excErr := checkException(decoded); isException {
			m.state = StateException
			return Result{}, excErr
		}
		parsed, err := response.ParseRead(entry, plan.Quantity, decoded.PDU)
		if err != nil {
			m.state = StateError
			return Result{}, err
		}
		registers = append(registers, parsed.Registers...)
		bits = append(bits, parsed.Bits...)
	}

	m.state = StateParsed
	return Result{Registers: registers, Bits: bits, AddressOffsets: opt.AddressOffsets}, nil
}

// WriteSingleCoil writes a single coil and validates the slave's echo.
func (m *Master) WriteSingleCoil(ctx context.Context, slaveID uint8, addr uint16, value bool) error {
	if _, err := block.NewReadCoilsBlock(slaveID, addr, 1); err != nil {
		return err
	}
	wireValue := uint16(0x0000)
	if value {
		wireValue = 0xFF00
	}
	pdu := make([]byte, 4)
	binary.BigEndian.PutUint16(pdu[0:2], addr)
	binary.BigEndian.PutUint16(pdu[2:4], wireValue)

	plan := optimize.RequestPlan{SlaveID: slaveID, FunctionCode: policy.FCWriteSingleCoil, StartAddress: addr, Quantity: 1}
	decoded, err := m.roundTrip(ctx, plan, pdu)
	if err != nil {
		return err
	}
	if _, isException, excErr := checkException(decoded); isException {
		m.state = StateException
		return excErr
	}

	result, err := response.ParseWrite(policy.FCWriteSingleCoil, decoded.PDU)
	if err != nil {
		m.state = StateError
		return err
	}
	if err := response.ValidateWriteSingleCoil(result, addr, value); err != nil {
		m.state = StateError
		return err
	}
	m.state = StateParsed
	return nil
}

// WriteSingleRegister writes a single holding register and validates the
// slave's echo.
func (m *Master) WriteSingleRegister(ctx context.Context, slaveID uint8, addr, value uint16) error {
	if _, err := block.New(slaveID, policy.FCWriteSingleRegister, addr, 1); err != nil {
		return err
	}
	pdu := make([]byte, 4)
	binary.BigEndian.PutUint16(pdu[0:2], addr)
	binary.BigEndian.PutUint16(pdu[2:4], value)

	plan := optimize.RequestPlan{SlaveID: slaveID, FunctionCode: policy.FCWriteSingleRegister, StartAddress: addr, Quantity: 1}
	decoded, err := m.roundTrip(ctx, plan, pdu)
	if err != nil {
		return err
	}
	if _, isException, excErr := checkException(decoded); isException {
		m.state = StateException
		return excErr
	}

	result, err := response.ParseWrite(policy.FCWriteSingleRegister, decoded.PDU)
	if err != nil {
		m.state = StateError
		return err
	}
	if err := response.ValidateWriteSingleRegister(result, addr, value); err != nil {
		m.state = StateError
		return err
	}
	m.state = StateParsed
	return nil
}

// WriteMultipleRegisters writes a contiguous span of holding registers.
// quantity must be in [1, 123] per FC16's policy ceiling; byte_count is
// derived as 2*quantity.
func (m *Master) WriteMultipleRegisters(ctx context.Context, slaveID uint8, start uint16, values []uint16) error {
	qty := uint16(len(values))
	if _, err := block.New(slaveID, policy.FCWriteMultipleRegisters, start, qty); err != nil {
		return err
	}

	pdu := make([]byte, 5+2*len(values))
	binary.BigEndian.PutUint16(pdu[0:2], start)
	binary.BigEndian.PutUint16(pdu[2:4], qty)
	pdu[4] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(pdu[5+2*i:7+2*i], v)
	}

	plan := optimize.RequestPlan{SlaveID: slaveID, FunctionCode: policy.FCWriteMultipleRegisters, StartAddress: start, Quantity: qty}
	decoded, err := m.roundTrip(ctx, plan, pdu)
	if err != nil {
		return err
	}
	if _, isException, excErr := checkException(decoded); isException {
		m.state = StateException
		return excErr
	}

	result, err := response.ParseWrite(policy.FCWriteMultipleRegisters, decoded.PDU)
	if err != nil {
		m.state = StateError
		return err
	}
	if err := response.ValidateWriteMultiple(result, start, qty); err != nil {
		m.state = StateError
		return err
	}
	m.state = StateParsed
	return nil
}
