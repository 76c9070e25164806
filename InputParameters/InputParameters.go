package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type DistanceParameters struct {
	Title       string  `yaml:"Title"`
	Mesh        string  `yaml:"Mesh"`
	Refinements int     `yaml:"Refinements"`
	Order       int     `yaml:"Order"` // Non-positive requests the mesh basis
	TParam      float64 `yaml:"TParam"`
	Problem     int     `yaml:"Problem"` // 0: boundary Dirichlet stage, 1: free space
	NProc       int     `yaml:"NProc"`
	SourceX     float64 `yaml:"SourceX"` // Point source location, first coordinate
}

func (ip *DistanceParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *DistanceParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t= Mesh\n", ip.Mesh)
	fmt.Printf("[%d]\t\t\t\t= Refinements\n", ip.Refinements)
	fmt.Printf("[%d]\t\t\t\t= Order\n", ip.Order)
	fmt.Printf("%8.5f\t\t= TParam\n", ip.TParam)
	fmt.Printf("[%d]\t\t\t\t= Problem\n", ip.Problem)
	fmt.Printf("[%d]\t\t\t\t= NProc\n", ip.NProc)
}
