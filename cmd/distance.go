/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/notargets/heatdist/InputParameters"
	"github.com/notargets/heatdist/model_problems/HeatDistance"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
)

// distanceCmd represents the distance command
var distanceCmd = &cobra.Command{
	Use:   "distance",
	Short: "Compute the heat method distance field on an inline mesh",
	Long: `
Runs the three stage heat method: a short diffusion of a point source
under Dirichlet and Neumann boundary conditions, gradient normalization
of the blended field, and a Poisson solve recovering the distance,

heatdist distance -m inline-segment -r 3 -n 2 -t 2.0 `,
	Run: func(cmd *cobra.Command, args []string) {
		ip := &InputParameters.DistanceParameters{
			Title:   "Heat Method Distance",
			TParam:  2.0,
			SourceX: 0.75,
		}
		inputFile, _ := cmd.Flags().GetString("inputFile")
		if inputFile != "" {
			data, err := os.ReadFile(inputFile)
			if err != nil {
				fmt.Printf("unable to read input file: %v\n", err)
				os.Exit(1)
			}
			if err = ip.Parse(data); err != nil {
				fmt.Printf("unable to parse input file: %v\n", err)
				os.Exit(1)
			}
		}
		// Command line flags override the input file where given
		fromFlag := func(name string) bool {
			return inputFile == "" || cmd.Flags().Changed(name)
		}
		if fromFlag("mesh") {
			ip.Mesh, _ = cmd.Flags().GetString("mesh")
		}
		if fromFlag("rs") {
			ip.Refinements, _ = cmd.Flags().GetInt("rs")
		}
		if fromFlag("n") {
			ip.Order, _ = cmd.Flags().GetInt("n")
		}
		if fromFlag("tparam") {
			ip.TParam, _ = cmd.Flags().GetFloat64("tparam")
		}
		if fromFlag("problem") {
			ip.Problem, _ = cmd.Flags().GetInt("problem")
		}
		if fromFlag("nproc") {
			ip.NProc, _ = cmd.Flags().GetInt("nproc")
		}
		if doProfile, _ := cmd.Flags().GetBool("profile"); doProfile {
			defer profile.Start().Stop()
		}
		ip.Print()
		hd, err := HeatDistance.NewHeatDistance(ip)
		if err != nil {
			fmt.Printf("configuration error: %v\n", err)
			os.Exit(1)
		}
		if err = hd.Run(); err != nil {
			fmt.Printf("run failed: %v\n", err)
			os.Exit(1)
		}
		if showGraph, _ := cmd.Flags().GetBool("graph"); showGraph {
			delay, _ := cmd.Flags().GetInt("delay")
			hd.PlotFields(time.Duration(delay) * time.Millisecond)
		}
		if pv, _ := cmd.Flags().GetString("paraview"); pv != "" {
			if err = hd.WriteVTK(pv); err != nil {
				fmt.Printf("unable to write %s: %v\n", pv, err)
				os.Exit(1)
			}
			fmt.Printf("wrote %s\n", pv)
		}
	},
}

func init() {
	rootCmd.AddCommand(distanceCmd)
	distanceCmd.Flags().StringP("mesh", "m", "inline-segment", "inline mesh name: inline-segment, inline-quad, inline-tri, inline-hex, inline-tet")
	distanceCmd.Flags().IntP("rs", "r", 3, "number of serial uniform refinements")
	distanceCmd.Flags().IntP("n", "n", 2, "polynomial degree, non-positive requests the mesh basis")
	distanceCmd.Flags().Float64P("tparam", "t", 2.0, "diffusion time multiplier, dt = t * h^2")
	distanceCmd.Flags().IntP("problem", "p", 0, "boundary scenario: 0 = Dirichlet walls, 1 = free space")
	distanceCmd.Flags().Int("nproc", runtime.NumCPU(), "number of parallel ranks")
	distanceCmd.Flags().Bool("graph", false, "display a graph of the 1D solution fields")
	distanceCmd.Flags().Int("delay", 10000, "milliseconds to keep the graph window open")
	distanceCmd.Flags().String("paraview", "", "write the fields to this legacy VTK file")
	distanceCmd.Flags().Bool("profile", false, "write a CPU profile of the run")
	distanceCmd.Flags().StringP("inputFile", "f", "", "YAML input file with the run parameters")
}
