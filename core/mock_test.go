package core

// Mock HAL drivers used across the core tests.

type phaseOutput struct {
	mode PhaseMode
	duty uint16
}

type mockPWM struct {
	initCalls int
	frequency uint32
	phases    [phaseCount]phaseOutput
	setCalls  int
}

func (p *mockPWM) Init() error {
	p.initCalls++
	return nil
}

func (p *mockPWM) SetFrequency(hz uint32) error {
	p.frequency = hz
	return nil
}

func (p *mockPWM) SetPhaseDuty(phase Phase, mode PhaseMode, duty uint16) {
	p.phases[phase] = phaseOutput{mode: mode, duty: duty}
	p.setCalls++
}

type mockGPIO struct {
	configured map[GPIOPin]bool
	levels     map[GPIOPin]bool
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{
		configured: make(map[GPIOPin]bool),
		levels:     make(map[GPIOPin]bool),
	}
}

func (g *mockGPIO) ConfigureInputFloating(pin GPIOPin) error {
	g.configured[pin] = true
	return nil
}

func (g *mockGPIO) ReadPin(pin GPIOPin) bool {
	return g.levels[pin]
}

// setHallCode drives the three hall pins to present code.
func (g *mockGPIO) setHallCode(pins [3]GPIOPin, code uint8) {
	for i, pin := range pins {
		g.levels[pin] = code&(1<<uint(i)) != 0
	}
}

type mockADC struct {
	initCalls int
	voltages  [4]uint16
	callback  func()
}

func (a *mockADC) Init() error {
	a.initCalls++
	return nil
}

func (a *mockADC) ReadVoltage(ch ADCChannel) uint16 {
	return a.voltages[ch]
}

func (a *mockADC) OnSampleComplete(fn func()) {
	a.callback = fn
}

// sample invokes the registered dispatcher once, as the hardware would after
// a completed conversion set.
func (a *mockADC) sample() {
	a.callback()
}

var testHallPins = [3]GPIOPin{16, 17, 18}

// newTestMotor builds an initialized motor over fresh mocks. The hall code
// determines sensored vs sensorless operation.
func newTestMotor(cfg Config, hallCode uint8) (*Motor, *mockPWM, *mockGPIO, *mockADC) {
	if cfg.HallPins == ([3]GPIOPin{}) {
		cfg.HallPins = testHallPins
	}
	pwm := &mockPWM{}
	gpio := newMockGPIO()
	adc := &mockADC{}
	gpio.setHallCode(cfg.HallPins, hallCode)

	m, err := NewMotor(cfg, pwm, gpio, adc)
	if err != nil {
		panic(err)
	}
	if err := m.Init(); err != nil {
		panic(err)
	}
	return m, pwm, gpio, adc
}
