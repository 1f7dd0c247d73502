package polar

// Lagoon440 returns the bundled performance diagram of a Lagoon 440 cruising
// catamaran. Speeds are knots from the builder's polar tables, reduced for
// typical offshore loading.
func Lagoon440() *Diagram {
	d := &Diagram{
		Label: "Lagoon 440",
		Sails: []SailPolar{
			{
				Name: "Main + Jib",
				Curves: []Curve{
					mainJibCurve(4, []float64{2.2, 2.6, 2.9, 3.1, 3.2, 3.3, 3.4, 3.3, 3.2, 3.1, 2.9, 2.2, 2.1}),
					mainJibCurve(6, []float64{3.1, 3.6, 4.0, 4.3, 4.4, 4.5, 4.7, 4.6, 4.5, 4.2, 4.0, 3.1, 2.9}),
					mainJibCurve(8, []float64{4.1, 4.8, 5.2, 5.7, 5.8, 6.0, 6.1, 6.1, 5.9, 5.6, 5.2, 4.1, 3.8}),
					mainJibCurve(10, []float64{5.0, 5.8, 6.4, 6.9, 7.1, 7.3, 7.5, 7.4, 7.2, 6.8, 6.4, 5.0, 4.6}),
					mainJibCurve(12, []float64{5.6, 6.5, 7.2, 7.7, 8.0, 8.2, 8.4, 8.3, 8.1, 7.6, 7.2, 5.6, 5.2}),
					mainJibCurve(14, []float64{6.1, 7.1, 7.8, 8.4, 8.7, 8.9, 9.2, 9.0, 8.8, 8.3, 7.8, 6.1, 5.6}),
					mainJibCurve(16, []float64{6.5, 7.5, 8.3, 9.0, 9.2, 9.5, 9.8, 9.6, 9.4, 8.8, 8.3, 6.5, 6.0}),
					mainJibCurve(20, []float64{7.1, 8.2, 9.1, 9.8, 10.1, 10.4, 10.6, 10.5, 10.2, 9.7, 9.1, 7.1, 6.5}),
					mainJibCurve(25, []float64{7.4, 8.6, 9.5, 10.2, 10.5, 10.8, 11.1, 11.0, 10.7, 10.1, 9.5, 7.4, 6.8}),
				},
			},
			{
				Name: "Main + Asymmetric",
				Curves: []Curve{
					asymCurve(6, []float64{4.8, 5.3, 5.7, 6.0, 6.0, 5.6, 5.0, 4.3, 3.8}),
					asymCurve(10, []float64{6.9, 7.6, 8.2, 8.6, 8.5, 8.0, 7.2, 6.2, 5.4}),
					asymCurve(14, []float64{8.6, 9.5, 10.2, 10.7, 10.6, 10.0, 9.0, 7.8, 6.7}),
					asymCurve(20, []float64{9.7, 10.6, 11.5, 12.0, 11.9, 11.2, 10.1, 8.7, 7.6}),
				},
			},
			{
				Name: "Main + Spinnaker",
				Curves: []Curve{
					spinCurve(6, []float64{5.6, 5.9, 5.7, 5.5, 5.0, 4.8}),
					spinCurve(10, []float64{8.0, 8.4, 8.2, 7.8, 7.2, 6.8}),
					spinCurve(14, []float64{9.6, 10.1, 9.8, 9.4, 8.6, 8.2}),
					spinCurve(18, []float64{10.4, 10.9, 10.7, 10.1, 9.4, 8.8}),
				},
			},
			{
				Name: "Main + Code Zero",
				Curves: []Curve{
					codeZeroCurve(2, []float64{2.0, 2.3, 2.6, 2.9, 3.1, 3.0, 2.8, 2.5, 2.3}),
					codeZeroCurve(4, []float64{3.3, 3.9, 4.4, 4.8, 5.1, 5.0, 4.7, 4.2, 3.8}),
					codeZeroCurve(6, []float64{4.4, 5.2, 5.8, 6.4, 6.8, 6.6, 6.2, 5.6, 5.0}),
					codeZeroCurve(10, []float64{5.5, 6.5, 7.3, 8.0, 8.5, 8.3, 7.8, 7.0, 6.3}),
					codeZeroCurve(14, []float64{5.9, 7.0, 7.8, 8.6, 9.2, 9.0, 8.4, 7.6, 6.8}),
				},
			},
			{
				Name: "Storm Jib",
				Curves: []Curve{
					stormJibCurve(30, []float64{3.8, 4.1, 4.7, 4.9, 4.5, 4.0}),
					stormJibCurve(40, []float64{4.2, 4.6, 5.2, 5.4, 5.0, 4.4}),
					stormJibCurve(50, []float64{4.4, 4.8, 5.5, 5.7, 5.3, 4.6}),
					stormJibCurve(60, []float64{4.4, 4.8, 5.5, 5.7, 5.3, 4.6}),
				},
			},
		},
	}
	d.normalize()
	return d
}

func curve(tws float64, twas, speeds []float64) Curve {
	pts := make([]Point, len(twas))
	for i := range twas {
		pts[i] = Point{Twa: twas[i], Speed: speeds[i]}
	}
	return Curve{Tws: tws, Points: pts}
}

func mainJibCurve(tws float64, speeds []float64) Curve {
	return curve(tws, []float64{35, 40, 45, 50, 60, 75, 90, 110, 120, 135, 150, 165, 180}, speeds)
}

func asymCurve(tws float64, speeds []float64) Curve {
	return curve(tws, []float64{60, 75, 90, 110, 120, 135, 150, 165, 180}, speeds)
}

func spinCurve(tws float64, speeds []float64) Curve {
	return curve(tws, []float64{100, 120, 135, 150, 165, 180}, speeds)
}

func codeZeroCurve(tws float64, speeds []float64) Curve {
	return curve(tws, []float64{40, 50, 60, 75, 90, 110, 120, 135, 150}, speeds)
}

func stormJibCurve(tws float64, speeds []float64) Curve {
	return curve(tws, []float64{50, 60, 90, 120, 150, 180}, speeds)
}
